package tts

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// SaveOutcomes writes the per-unit synthesis outcomes, sorted by slide index.
// The file is the synthesize stage's durable record; rendering and subtitling
// read clip durations back out of it.
func SaveOutcomes(path string, outcomes []Outcome) error {
	sorted := make([]Outcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SlideIndex < sorted[j].SlideIndex })

	encoded, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write outcomes: %w", err)
	}
	return nil
}

// LoadOutcomes reads a previously saved outcome file. A missing file returns
// an empty slice so resume logic does not need a separate existence check.
func LoadOutcomes(path string) ([]Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	var outcomes []Outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("decode outcomes: %w", err)
	}
	return outcomes, nil
}
