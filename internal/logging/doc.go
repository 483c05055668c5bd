// Package logging builds slog loggers with the console and JSON handlers used
// across the slidecast daemon, plus helpers for standardized structured fields.
package logging
