package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/services/soffice"
)

// SlideImager writes one PNG per slide into slidesDir and returns the paths
// in slide order. Implementations must produce exactly slideCount images.
type SlideImager interface {
	ExportSlides(ctx context.Context, sourcePath, slidesDir string, slideCount int) ([]string, error)
}

func slideImageName(index int) string {
	return fmt.Sprintf("slide_%03d.png", index)
}

// SofficeImager renders real slide images by converting the deck to PDF with
// LibreOffice and rasterizing the pages with poppler.
type SofficeImager struct {
	client *soffice.Client
}

// NewSofficeImager constructs the LibreOffice-backed imager.
func NewSofficeImager(client *soffice.Client) *SofficeImager {
	return &SofficeImager{client: client}
}

func (s *SofficeImager) ExportSlides(ctx context.Context, sourcePath, slidesDir string, slideCount int) ([]string, error) {
	pdfPath, err := s.client.ConvertToPDF(ctx, sourcePath, slidesDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(pdfPath)

	pages, err := s.client.RasterizePDF(ctx, pdfPath, slidesDir, "page")
	if err != nil {
		return nil, err
	}
	if len(pages) != slideCount {
		for _, page := range pages {
			_ = os.Remove(page)
		}
		return nil, services.Wrap(services.ErrExternalTool, "extract", "rasterize",
			fmt.Sprintf("rendered %d pages for %d slides", len(pages), slideCount), nil)
	}

	paths := make([]string, 0, slideCount)
	for i, page := range pages {
		target := filepath.Join(slidesDir, slideImageName(i+1))
		if err := os.Rename(page, target); err != nil {
			return nil, fmt.Errorf("place slide image %d: %w", i+1, err)
		}
		paths = append(paths, target)
	}
	return paths, nil
}

// cardPalette cycles through muted background colors so placeholder decks are
// visually distinguishable slide to slide.
var cardPalette = []string{"0x1f2430", "0x2d3a4f", "0x3b2f4a", "0x2f4a3b", "0x4a3b2f"}

// PlaceholderImager writes solid color cards through ffmpeg when no deck
// renderer is installed. The video still carries the narration; the image is
// just a backdrop.
type PlaceholderImager struct {
	media  ffmpeg.Client
	width  int
	height int
}

// NewPlaceholderImager constructs the ffmpeg-backed placeholder imager.
func NewPlaceholderImager(media ffmpeg.Client, width, height int) *PlaceholderImager {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	return &PlaceholderImager{media: media, width: width, height: height}
}

func (p *PlaceholderImager) ExportSlides(ctx context.Context, sourcePath, slidesDir string, slideCount int) ([]string, error) {
	paths := make([]string, 0, slideCount)
	for i := 1; i <= slideCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := filepath.Join(slidesDir, slideImageName(i))
		color := cardPalette[(i-1)%len(cardPalette)]
		if err := p.media.ColorCard(ctx, target, p.width, p.height, color); err != nil {
			return nil, err
		}
		paths = append(paths, target)
	}
	return paths, nil
}

var (
	_ SlideImager = (*SofficeImager)(nil)
	_ SlideImager = (*PlaceholderImager)(nil)
)
