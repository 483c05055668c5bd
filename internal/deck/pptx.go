package deck

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"slidecast/internal/services"
)

// PPTXParser reads the Office Open XML presentation format. A .pptx file is a
// zip archive; slide text lives in ppt/slides/slideN.xml and speaker notes in
// ppt/notesSlides/notesSlideN.xml, linked through per-slide relationship
// files.
type PPTXParser struct{}

// NewPPTXParser constructs the default presentation parser.
func NewPPTXParser() *PPTXParser {
	return &PPTXParser{}
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

const notesRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"

// Parse reads the archive and returns slides in presentation order. Malformed
// archives and archives without slides produce a validation error.
func (p *PPTXParser) Parse(ctx context.Context, sourcePath string) (Deck, error) {
	reader, err := zip.OpenReader(sourcePath)
	if err != nil {
		return Deck{}, services.Wrap(services.ErrValidation, "extract", "open deck", "not a valid pptx archive", err)
	}
	defer reader.Close()

	files := make(map[string]*zip.File, len(reader.File))
	for _, file := range reader.File {
		files[file.Name] = file
	}
	if _, ok := files["[Content_Types].xml"]; !ok {
		return Deck{}, services.Wrap(services.ErrValidation, "extract", "open deck", "missing content types part", nil)
	}

	type slideEntry struct {
		number int
		name   string
	}
	var entries []slideEntry
	for name := range files {
		match := slidePattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		entries = append(entries, slideEntry{number: number, name: name})
	}
	if len(entries) == 0 {
		return Deck{}, services.Wrap(services.ErrValidation, "extract", "parse deck", "presentation has no slides", nil)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].number < entries[j].number })

	deck := Deck{Slides: make([]Slide, 0, len(entries))}
	for index, entry := range entries {
		if err := ctx.Err(); err != nil {
			return Deck{}, err
		}
		title, err := parseSlideTitle(files[entry.name])
		if err != nil {
			return Deck{}, services.Wrap(services.ErrValidation, "extract", "parse deck",
				fmt.Sprintf("malformed slide %d", entry.number), err)
		}
		notes, err := parseSlideNotes(files, entry.name)
		if err != nil {
			return Deck{}, services.Wrap(services.ErrValidation, "extract", "parse deck",
				fmt.Sprintf("malformed notes for slide %d", entry.number), err)
		}
		deck.Slides = append(deck.Slides, Slide{
			Index: index + 1,
			Title: title,
			Notes: notes,
		})
	}

	deck.Title = deck.Slides[0].Title
	if deck.Title == "" {
		base := filepath.Base(sourcePath)
		deck.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return deck, nil
}

type slideXML struct {
	Shapes []shapeXML `xml:"cSld>spTree>sp"`
}

type shapeXML struct {
	Placeholder placeholderXML `xml:"nvSpPr>nvPr>ph"`
	Paragraphs  []paragraphXML `xml:"txBody>p"`
}

type placeholderXML struct {
	Type string `xml:"type,attr"`
}

type paragraphXML struct {
	Runs []string `xml:"r>t"`
}

func (s shapeXML) text() string {
	lines := make([]string, 0, len(s.Paragraphs))
	for _, paragraph := range s.Paragraphs {
		lines = append(lines, strings.Join(paragraph.Runs, ""))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func parseSlideTitle(file *zip.File) (string, error) {
	var slide slideXML
	if err := decodePart(file, &slide); err != nil {
		return "", err
	}
	for _, shape := range slide.Shapes {
		if shape.Placeholder.Type == "title" || shape.Placeholder.Type == "ctrTitle" {
			return shape.text(), nil
		}
	}
	// No title placeholder; fall back to the first shape with any text.
	for _, shape := range slide.Shapes {
		if text := shape.text(); text != "" {
			return text, nil
		}
	}
	return "", nil
}

// parseSlideNotes resolves the slide's notes part through the relationship
// file and returns the body placeholder text. Slides without a notes part
// return empty notes.
func parseSlideNotes(files map[string]*zip.File, slideName string) (string, error) {
	relsName := path.Join("ppt/slides/_rels", path.Base(slideName)+".rels")
	relsFile, ok := files[relsName]
	if !ok {
		return "", nil
	}
	var rels relationshipsXML
	if err := decodePart(relsFile, &rels); err != nil {
		return "", err
	}
	var notesTarget string
	for _, rel := range rels.Items {
		if rel.Type == notesRelationshipType {
			notesTarget = rel.Target
			break
		}
	}
	if notesTarget == "" {
		return "", nil
	}
	notesName := path.Clean(path.Join("ppt/slides", notesTarget))
	notesFile, ok := files[notesName]
	if !ok {
		return "", nil
	}
	var notes slideXML
	if err := decodePart(notesFile, &notes); err != nil {
		return "", err
	}
	// The notes page carries slide-image and slide-number placeholders
	// alongside the actual notes body.
	for _, shape := range notes.Shapes {
		if shape.Placeholder.Type == "body" {
			return shape.text(), nil
		}
	}
	return "", nil
}

type relationshipsXML struct {
	Items []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

func decodePart(file *zip.File, target any) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open part %s: %w", file.Name, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read part %s: %w", file.Name, err)
	}
	if err := xml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode part %s: %w", file.Name, err)
	}
	return nil
}

var _ Parser = (*PPTXParser)(nil)
