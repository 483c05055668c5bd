// Package tts dispatches narration text to speech engines.
//
// The registry describes which engines are usable given configuration and
// credentials; the dispatcher walks enabled engines in priority order with
// per-engine retry and rate limiting, and guarantees every speech unit ends
// with exactly one audio clip by writing a silence WAV when all engines fail.
package tts
