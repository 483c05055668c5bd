// Package deck parses presentation files into slide metadata the pipeline
// stages consume. The extract stage turns a Deck into per-slide script files,
// slide images, and a manifest that the later stages read back.
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Slide is one slide of a presentation. Index is 1-based and matches the
// slide order in the source file. Notes holds the speaker notes text that
// becomes the narration script; it is empty when the slide has no notes.
type Slide struct {
	Index int
	Title string
	Notes string
}

// Deck is the parsed representation of a presentation file.
type Deck struct {
	Title  string
	Slides []Slide
}

// Parser converts a presentation file into a Deck.
type Parser interface {
	Parse(ctx context.Context, path string) (Deck, error)
}

// ManifestSlide records the extracted artifacts for one slide. Paths are
// relative to the job staging root so the manifest survives a staging move.
type ManifestSlide struct {
	Index      int    `json:"index"`
	Title      string `json:"title,omitempty"`
	ScriptFile string `json:"script_file"`
	ImageFile  string `json:"image_file"`
	NoteChars  int    `json:"note_chars"`
}

// Manifest is the extract stage's durable output, written to manifest.json in
// the job staging root.
type Manifest struct {
	SourceFile  string          `json:"source_file"`
	Title       string          `json:"title"`
	SlideCount  int             `json:"slide_count"`
	GeneratedAt time.Time       `json:"generated_at"`
	Slides      []ManifestSlide `json:"slides"`
}

// WriteManifest persists the manifest as indented JSON.
func WriteManifest(path string, manifest Manifest) error {
	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by the extract stage.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}
