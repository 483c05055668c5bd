package soffice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"slidecast/internal/services"
)

func setHelperCommand(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("SOFFICE_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestConvertToPDFBuildsExpectedArguments(t *testing.T) {
	var captured []string
	setHelperCommand(t, "success", &captured)

	outDir := t.TempDir()
	pdfPath := filepath.Join(outDir, "deck.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("seed pdf: %v", err)
	}

	client := NewClient()
	got, err := client.ConvertToPDF(context.Background(), "/inbox/deck.pptx", outDir)
	if err != nil {
		t.Fatalf("ConvertToPDF: %v", err)
	}
	if got != pdfPath {
		t.Fatalf("pdf path = %q, want %q", got, pdfPath)
	}
	for _, want := range []string{"--headless", "--convert-to", "pdf", "--outdir", outDir, "/inbox/deck.pptx"} {
		found := false
		for _, arg := range captured {
			if arg == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %q in args %v", want, captured)
		}
	}
}

func TestConvertToPDFMissingOutput(t *testing.T) {
	setHelperCommand(t, "success", nil)

	client := NewClient()
	_, err := client.ConvertToPDF(context.Background(), "/inbox/deck.pptx", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRasterizePDFOrdersPages(t *testing.T) {
	setHelperCommand(t, "success", nil)

	outDir := t.TempDir()
	for _, name := range []string{"slide-10.png", "slide-2.png", "slide-1.png"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("png"), 0o644); err != nil {
			t.Fatalf("seed page: %v", err)
		}
	}

	client := NewClient()
	pages, err := client.RasterizePDF(context.Background(), "/staging/deck.pdf", outDir, "slide")
	if err != nil {
		t.Fatalf("RasterizePDF: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("page count = %d", len(pages))
	}
	want := []string{"slide-1.png", "slide-2.png", "slide-10.png"}
	for i, page := range pages {
		if filepath.Base(page) != want[i] {
			t.Fatalf("page %d = %q, want %q", i, filepath.Base(page), want[i])
		}
	}
}

func TestRasterizePDFNoPages(t *testing.T) {
	setHelperCommand(t, "success", nil)

	client := NewClient()
	_, err := client.RasterizePDF(context.Background(), "/staging/deck.pdf", t.TempDir(), "slide")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRunFailureSurfacesStderr(t *testing.T) {
	setHelperCommand(t, "failure", nil)

	client := NewClient()
	_, err := client.ConvertToPDF(context.Background(), "/inbox/deck.pptx", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if details := services.Details(err); details.Message == "" {
		t.Fatal("expected stderr detail in message")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("SOFFICE_HELPER_MODE") {
	case "failure":
		fmt.Fprintln(os.Stderr, "Error: source file could not be loaded")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
