package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"slidecast/internal/services"
)

func TestNewCLIWithBinaries(t *testing.T) {
	cli := NewCLI(WithBinaries("/opt/ffmpeg", "/opt/ffprobe"))
	if cli.ffmpeg != "/opt/ffmpeg" || cli.ffprobe != "/opt/ffprobe" {
		t.Fatalf("binary overrides not applied: %q %q", cli.ffmpeg, cli.ffprobe)
	}
}

func TestAudioDurationParsesProbeOutput(t *testing.T) {
	setHelperCommand(t, "duration")

	cli := NewCLI()
	duration, err := cli.AudioDuration(context.Background(), "/media/slide_001.wav")
	if err != nil {
		t.Fatalf("AudioDuration: %v", err)
	}
	if duration != time.Duration(12.345*float64(time.Second)) {
		t.Fatalf("duration = %s", duration)
	}
}

func TestAudioDurationRequiresPath(t *testing.T) {
	cli := NewCLI()
	if _, err := cli.AudioDuration(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAudioDurationBadOutput(t *testing.T) {
	setHelperCommand(t, "garbage")

	cli := NewCLI()
	if _, err := cli.AudioDuration(context.Background(), "/media/clip.wav"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRenderClipBuildsExpectedArguments(t *testing.T) {
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE=success")
		return cmd
	}
	t.Cleanup(func() { commandContext = original })

	cli := NewCLI()
	err := cli.RenderClip(context.Background(), RenderSpec{
		ImagePath:  "/staging/slides/slide_001.png",
		AudioPath:  "/staging/audio/slide_001.wav",
		OutputPath: "/staging/clips/clip_001.mp4",
		Width:      1920,
		Height:     1080,
		FPS:        24,
		Bitrate:    "2000k",
		Preset:     "medium",
	})
	if err != nil {
		t.Fatalf("RenderClip: %v", err)
	}

	for _, want := range []string{"-loop", "-tune", "stillimage", "-b:v", "2000k", "-preset", "medium", "-shortest", "/staging/clips/clip_001.mp4"} {
		if findArg(captured, want) == -1 {
			t.Fatalf("expected %q in args %v", want, captured)
		}
	}
	if idx := findArg(captured, "-r"); idx == -1 || captured[idx+1] != "24" {
		t.Fatalf("fps flag missing or wrong in %v", captured)
	}
}

func TestRenderClipRequiresPaths(t *testing.T) {
	cli := NewCLI()
	err := cli.RenderClip(context.Background(), RenderSpec{ImagePath: "x"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestColorCardUsesLavfiSource(t *testing.T) {
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE=success")
		return cmd
	}
	t.Cleanup(func() { commandContext = original })

	cli := NewCLI()
	if err := cli.ColorCard(context.Background(), "/staging/slides/slide_003.png", 1920, 1080, "0x2d3a4f"); err != nil {
		t.Fatalf("ColorCard: %v", err)
	}
	if idx := findArg(captured, "-i"); idx == -1 || captured[idx+1] != "color=c=0x2d3a4f:s=1920x1080" {
		t.Fatalf("lavfi input missing or wrong in %v", captured)
	}
	if findArg(captured, "-frames:v") == -1 {
		t.Fatalf("single frame flag missing in %v", captured)
	}
}

func TestConcatAndMuxCommandShapes(t *testing.T) {
	var captured [][]string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append(captured, append([]string(nil), args...))
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE=success")
		return cmd
	}
	t.Cleanup(func() { commandContext = original })

	cli := NewCLI()
	if err := cli.Concat(context.Background(), "/staging/clips/list.txt", "/staging/final/deck.mp4"); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if err := cli.MuxSubtitles(context.Background(), "/staging/final/deck.mp4", "/staging/subtitles/deck.srt", "/out/deck.mp4"); err != nil {
		t.Fatalf("MuxSubtitles: %v", err)
	}

	concatArgs := captured[0]
	if findArg(concatArgs, "concat") == -1 || findArg(concatArgs, "-safe") == -1 {
		t.Fatalf("concat args = %v", concatArgs)
	}
	muxArgs := captured[1]
	if findArg(muxArgs, "mov_text") == -1 {
		t.Fatalf("mux args = %v", muxArgs)
	}
}

func TestRunFailureSurfacesStderrTail(t *testing.T) {
	setHelperCommand(t, "failure")

	cli := NewCLI()
	err := cli.Remux(context.Background(), "/in.mp4", "/out.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	details := services.Details(err)
	if details.Message == "" {
		t.Fatal("expected stderr detail in message")
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		os.Exit(0)
	case "duration":
		fmt.Println("12.345")
		os.Exit(0)
	case "garbage":
		fmt.Println("N/A")
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "ffmpeg version n7.0")
		fmt.Fprintln(os.Stderr, "/in.mp4: No such file or directory")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
