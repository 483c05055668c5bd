package deps

import "slidecast/internal/config"

// Requirements lists the binaries Slidecast invokes, resolved from config.
// LibreOffice is optional: without it the extract stage renders placeholder
// slide images instead of rasterized deck pages.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Renders slide clips, silence audio, and the final merge",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Measures synthesized audio durations",
		},
		{
			Name:        "LibreOffice",
			Command:     cfg.SofficeBinary(),
			Description: "Converts decks to PDF for slide image export",
			Optional:    true,
		},
	}
}

// Check evaluates all configured requirements.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}
