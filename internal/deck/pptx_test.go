package deck_test

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/deck"
	"slidecast/internal/services"
)

const contentTypesPart = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
</Types>`

func slidePart(title string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="body"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>bullet text</a:t></a:r></a:p></p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:sld>`, title)
}

func notesPart(notes string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<p:notes xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
         xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="sldNum"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>7</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="body"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:notes>`, notes)
}

func relsPart(notesTarget string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="%s"/>
</Relationships>`, notesTarget)
}

func buildPPTX(t *testing.T, parts map[string]string) string {
	t.Helper()
	archivePath := filepath.Join(t.TempDir(), "deck.pptx")
	file, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	writer := zip.NewWriter(file)
	for name, content := range parts {
		part, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create part %s: %v", name, err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return archivePath
}

func TestParseExtractsSlidesInOrder(t *testing.T) {
	archivePath := buildPPTX(t, map[string]string{
		"[Content_Types].xml":                  contentTypesPart,
		"ppt/slides/slide1.xml":                slidePart("Quarterly Review"),
		"ppt/slides/slide2.xml":                slidePart("Agenda"),
		"ppt/slides/slide10.xml":               slidePart("Wrap Up"),
		"ppt/slides/_rels/slide1.xml.rels":     relsPart("../notesSlides/notesSlide1.xml"),
		"ppt/slides/_rels/slide10.xml.rels":    relsPart("../notesSlides/notesSlide3.xml"),
		"ppt/notesSlides/notesSlide1.xml":      notesPart("Welcome everyone to the review."),
		"ppt/notesSlides/notesSlide3.xml":      notesPart("Thanks for listening."),
		"ppt/notesSlides/_rels/placeholder.md": "ignored",
	})

	parser := deck.NewPPTXParser()
	parsed, err := parser.Parse(context.Background(), archivePath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.Title != "Quarterly Review" {
		t.Fatalf("deck title = %q", parsed.Title)
	}
	if len(parsed.Slides) != 3 {
		t.Fatalf("slide count = %d", len(parsed.Slides))
	}
	for i, slide := range parsed.Slides {
		if slide.Index != i+1 {
			t.Fatalf("slide %d has index %d", i, slide.Index)
		}
	}
	if parsed.Slides[2].Title != "Wrap Up" {
		t.Fatalf("slide10 should sort last, got %q", parsed.Slides[2].Title)
	}
	if parsed.Slides[0].Notes != "Welcome everyone to the review." {
		t.Fatalf("slide 1 notes = %q", parsed.Slides[0].Notes)
	}
	if parsed.Slides[1].Notes != "" {
		t.Fatalf("slide 2 should have no notes, got %q", parsed.Slides[1].Notes)
	}
	if parsed.Slides[2].Notes != "Thanks for listening." {
		t.Fatalf("slide 10 notes = %q", parsed.Slides[2].Notes)
	}
}

func TestParseIgnoresSlideNumberPlaceholder(t *testing.T) {
	archivePath := buildPPTX(t, map[string]string{
		"[Content_Types].xml":              contentTypesPart,
		"ppt/slides/slide1.xml":            slidePart("Intro"),
		"ppt/slides/_rels/slide1.xml.rels": relsPart("../notesSlides/notesSlide1.xml"),
		"ppt/notesSlides/notesSlide1.xml":  notesPart("Only the body text."),
	})

	parsed, err := deck.NewPPTXParser().Parse(context.Background(), archivePath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Slides[0].Notes != "Only the body text." {
		t.Fatalf("notes = %q, slide number placeholder leaked", parsed.Slides[0].Notes)
	}
}

func TestParseRejectsNonArchive(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(sourcePath, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, err := deck.NewPPTXParser().Parse(context.Background(), sourcePath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsArchiveWithoutSlides(t *testing.T) {
	archivePath := buildPPTX(t, map[string]string{
		"[Content_Types].xml": contentTypesPart,
	})
	_, err := deck.NewPPTXParser().Parse(context.Background(), archivePath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseTitleFallsBackToFilename(t *testing.T) {
	empty := `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree/></p:cSld>
</p:sld>`
	archivePath := buildPPTX(t, map[string]string{
		"[Content_Types].xml":   contentTypesPart,
		"ppt/slides/slide1.xml": empty,
	})
	parsed, err := deck.NewPPTXParser().Parse(context.Background(), archivePath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Title != "deck" {
		t.Fatalf("deck title = %q, want filename fallback", parsed.Title)
	}
}
