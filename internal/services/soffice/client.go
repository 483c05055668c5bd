// Package soffice wraps the LibreOffice and poppler command line tools used
// to turn a presentation into per-slide PNG images. LibreOffice converts the
// deck to PDF; pdftoppm rasterizes the PDF pages. ffmpeg has no PDF demuxer,
// so poppler does the rasterization step.
package soffice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"slidecast/internal/services"
)

var commandContext = exec.CommandContext

// Client drives soffice and pdftoppm.
type Client struct {
	soffice  string
	pdftoppm string
}

// Option configures the client.
type Option func(*Client)

// WithBinaries overrides the soffice and pdftoppm binary names.
func WithBinaries(sofficeBinary, pdftoppmBinary string) Option {
	return func(c *Client) {
		if sofficeBinary != "" {
			c.soffice = sofficeBinary
		}
		if pdftoppmBinary != "" {
			c.pdftoppm = pdftoppmBinary
		}
	}
}

// NewClient constructs a client using the default binary names.
func NewClient(opts ...Option) *Client {
	client := &Client{soffice: "soffice", pdftoppm: "pdftoppm"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Available reports whether both binaries resolve on PATH.
func (c *Client) Available() bool {
	if _, err := exec.LookPath(c.soffice); err != nil {
		return false
	}
	if _, err := exec.LookPath(c.pdftoppm); err != nil {
		return false
	}
	return true
}

// ConvertToPDF converts a presentation into a PDF in outDir and returns the
// PDF path. soffice names the output after the source file.
func (c *Client) ConvertToPDF(ctx context.Context, sourcePath, outDir string) (string, error) {
	if strings.TrimSpace(sourcePath) == "" || strings.TrimSpace(outDir) == "" {
		return "", services.Wrap(services.ErrValidation, "", "soffice", "source and output directory required", nil)
	}
	args := []string{
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		sourcePath,
	}
	if err := c.run(ctx, c.soffice, args); err != nil {
		return "", err
	}
	base := filepath.Base(sourcePath)
	pdfPath := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "soffice",
			fmt.Sprintf("conversion produced no output at %s", pdfPath), err)
	}
	return pdfPath, nil
}

var pageSuffixPattern = regexp.MustCompile(`-(\d+)\.png$`)

// RasterizePDF renders every PDF page as a PNG named <prefix>-N.png inside
// outDir and returns the paths in page order.
func (c *Client) RasterizePDF(ctx context.Context, pdfPath, outDir, prefix string) ([]string, error) {
	if strings.TrimSpace(pdfPath) == "" || strings.TrimSpace(outDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "pdftoppm", "pdf path and output directory required", nil)
	}
	if prefix == "" {
		prefix = "page"
	}
	args := []string{
		"-png",
		"-r", "96",
		pdfPath,
		filepath.Join(outDir, prefix),
	}
	if err := c.run(ctx, c.pdftoppm, args); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(outDir, prefix+"-*.png"))
	if err != nil {
		return nil, fmt.Errorf("glob rasterized pages: %w", err)
	}
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "", "pdftoppm", "rasterization produced no pages", nil)
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	return matches, nil
}

func pageNumber(path string) int {
	match := pageSuffixPattern.FindStringSubmatch(path)
	if match == nil {
		return 0
	}
	number, _ := strconv.Atoi(match[1])
	return number
}

func (c *Client) run(ctx context.Context, binary string, args []string) error {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "", binary, "timed out", err)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "", binary, detail, err)
	}
	return nil
}
