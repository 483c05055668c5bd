package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"slidecast/internal/config"
)

// JobStagingDir returns the per-job staging root under the configured staging
// directory.
func JobStagingDir(cfg *config.Config, jobID int64) string {
	return filepath.Join(cfg.Paths.StagingDir, fmt.Sprintf("job-%d", jobID))
}

// StagingLayout enumerates the artifact directories a job uses while moving
// through the pipeline.
type StagingLayout struct {
	Root      string
	Scripts   string
	Slides    string
	Audio     string
	Clips     string
	Subtitles string
	Final     string
	Manifest  string
}

// LayoutFor derives the staging layout for a job.
func LayoutFor(cfg *config.Config, jobID int64) StagingLayout {
	root := JobStagingDir(cfg, jobID)
	return StagingLayout{
		Root:      root,
		Scripts:   filepath.Join(root, "scripts"),
		Slides:    filepath.Join(root, "slides"),
		Audio:     filepath.Join(root, "audio"),
		Clips:     filepath.Join(root, "clips"),
		Subtitles: filepath.Join(root, "subtitles"),
		Final:     filepath.Join(root, "final"),
		Manifest:  filepath.Join(root, "manifest.json"),
	}
}

// Ensure creates every directory in the layout.
func (l StagingLayout) Ensure() error {
	for _, dir := range []string{l.Root, l.Scripts, l.Slides, l.Audio, l.Clips, l.Subtitles, l.Final} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create staging directory %q: %w", dir, err)
		}
	}
	return nil
}
