package tts

import (
	"context"
	"time"
)

// SilenceEngine is the engine name recorded when a unit was filled with a
// generated silence clip instead of synthesized speech.
const SilenceEngine = "silence"

// SpeechUnit is one narration unit to synthesize, usually one slide's notes.
// Engine names the unit's preferred engine; empty means the configured default.
type SpeechUnit struct {
	Index      int
	Text       string
	Engine     string
	Language   string
	Voice      string
	Rate       string
	Pitch      string
	OutputPath string
}

// Request is the normalized synthesis request handed to an engine.
type Request struct {
	Text       string
	Language   string
	Voice      string
	Rate       string
	Pitch      string
	OutputPath string
}

// Clip is the product of a successful synthesis call.
type Clip struct {
	Path     string
	Duration time.Duration
}

// Engine is the capability interface implemented by each speech backend.
type Engine interface {
	Synthesize(ctx context.Context, req Request) (Clip, error)
}

// Outcome records how one speech unit was produced. Exactly one outcome
// exists per unit; a degraded outcome is still a success.
type Outcome struct {
	SlideIndex    int      `json:"slide_index"`
	Engine        string   `json:"engine"`
	Path          string   `json:"path"`
	Duration      Seconds  `json:"duration_seconds"`
	Degraded      bool     `json:"degraded"`
	FallbackChain int      `json:"fallback_chain"`
	Attempts      int      `json:"attempts"`
	EngineErrors  []string `json:"engine_errors,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Seconds serializes a duration as fractional seconds in JSON.
type Seconds time.Duration

// Duration converts back to a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// MarshalJSON implements json.Marshaler.
func (s Seconds) MarshalJSON() ([]byte, error) {
	return []byte(formatSeconds(time.Duration(s))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	value, err := parseSeconds(string(data))
	if err != nil {
		return err
	}
	*s = Seconds(value)
	return nil
}
