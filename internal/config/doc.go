// Package config loads, normalizes, and validates the TOML configuration for
// the slidecast daemon and CLI. Values resolve in order: defaults, config
// file, then SLIDECAST_-prefixed environment variables.
package config
