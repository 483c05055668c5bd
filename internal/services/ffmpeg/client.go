// Package ffmpeg wraps the ffmpeg and ffprobe command line tools for clip
// rendering, concatenation, subtitle muxing, and media inspection.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"slidecast/internal/services"
)

var commandContext = exec.CommandContext

// RenderSpec describes one still-image-plus-audio clip.
type RenderSpec struct {
	ImagePath  string
	AudioPath  string
	OutputPath string
	Width      int
	Height     int
	FPS        int
	Bitrate    string
	Preset     string
}

// Client defines the media operations the pipeline needs.
type Client interface {
	AudioDuration(ctx context.Context, path string) (time.Duration, error)
	RenderClip(ctx context.Context, spec RenderSpec) error
	ColorCard(ctx context.Context, outputPath string, width, height int, color string) error
	Concat(ctx context.Context, listPath, outputPath string) error
	MuxSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error
	Remux(ctx context.Context, inputPath, outputPath string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinaries overrides the ffmpeg and ffprobe binary names.
func WithBinaries(ffmpegBinary, ffprobeBinary string) Option {
	return func(c *CLI) {
		if ffmpegBinary != "" {
			c.ffmpeg = ffmpegBinary
		}
		if ffprobeBinary != "" {
			c.ffprobe = ffprobeBinary
		}
	}
}

// CLI wraps the command-line tools.
type CLI struct {
	ffmpeg  string
	ffprobe string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// AudioDuration probes the duration of an audio or video file.
func (c *CLI) AudioDuration(ctx context.Context, path string) (time.Duration, error) {
	if strings.TrimSpace(path) == "" {
		return 0, services.Wrap(services.ErrValidation, "", "ffprobe", "path required", nil)
	}
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	output, err := c.run(ctx, c.ffprobe, args)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "", "ffprobe",
			fmt.Sprintf("unparseable duration %q", strings.TrimSpace(output)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// RenderClip renders a still image with an audio track into an H.264 clip.
func (c *CLI) RenderClip(ctx context.Context, spec RenderSpec) error {
	if spec.ImagePath == "" || spec.AudioPath == "" || spec.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "", "ffmpeg", "image, audio, and output paths required", nil)
	}
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		spec.Width, spec.Height, spec.Width, spec.Height)
	args := []string{
		"-y",
		"-loop", "1",
		"-i", spec.ImagePath,
		"-i", spec.AudioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-preset", spec.Preset,
		"-b:v", spec.Bitrate,
		"-r", strconv.Itoa(spec.FPS),
		"-vf", scale,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		spec.OutputPath,
	}
	_, err := c.run(ctx, c.ffmpeg, args)
	return err
}

// ColorCard writes a single-frame solid-color PNG, used as a stand-in slide
// image when no deck renderer is available.
func (c *CLI) ColorCard(ctx context.Context, outputPath string, width, height int, color string) error {
	if outputPath == "" {
		return services.Wrap(services.ErrValidation, "", "ffmpeg", "output path required", nil)
	}
	if color == "" {
		color = "0x1f2430"
	}
	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d", color, width, height),
		"-frames:v", "1",
		outputPath,
	}
	_, err := c.run(ctx, c.ffmpeg, args)
	return err
}

// Concat joins clips listed in an ffmpeg concat demuxer file without
// re-encoding.
func (c *CLI) Concat(ctx context.Context, listPath, outputPath string) error {
	if listPath == "" || outputPath == "" {
		return services.Wrap(services.ErrValidation, "", "ffmpeg", "list and output paths required", nil)
	}
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
	_, err := c.run(ctx, c.ffmpeg, args)
	return err
}

// MuxSubtitles embeds an SRT file as a mov_text subtitle track.
func (c *CLI) MuxSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	if videoPath == "" || subtitlePath == "" || outputPath == "" {
		return services.Wrap(services.ErrValidation, "", "ffmpeg", "video, subtitle, and output paths required", nil)
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", subtitlePath,
		"-c", "copy",
		"-c:s", "mov_text",
		outputPath,
	}
	_, err := c.run(ctx, c.ffmpeg, args)
	return err
}

// Remux copies streams into a new container, used when no subtitle track is
// wanted in the final file.
func (c *CLI) Remux(ctx context.Context, inputPath, outputPath string) error {
	if inputPath == "" || outputPath == "" {
		return services.Wrap(services.ErrValidation, "", "ffmpeg", "input and output paths required", nil)
	}
	args := []string{"-y", "-i", inputPath, "-c", "copy", outputPath}
	_, err := c.run(ctx, c.ffmpeg, args)
	return err
}

func (c *CLI) run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "", binary, "timed out", err)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", services.Wrap(services.ErrExternalTool, "", binary, tailLines(detail, 4), err)
	}
	return stdout.String(), nil
}

// tailLines keeps the last few stderr lines, which is where ffmpeg puts the
// actual failure reason.
func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " | ")
}

var _ Client = (*CLI)(nil)
