package ingest

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docchat/internal/domain"
)

// LoadFile extracts the text sections of a single document. PDFs yield one
// section per page labeled "name.pdf:page_N"; DOCX and TXT yield a single
// whole-document section labeled with the file name. Unsupported extensions
// return ErrUnsupported.
func LoadFile(path string) ([]domain.Section, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	case ".txt", ".md":
		return loadText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
}

// ErrUnsupported marks file types no loader handles.
var ErrUnsupported = errors.New("unsupported file type")

func loadPDF(path string) ([]domain.Section, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var sections []domain.Section
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", pageNum, name, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections = append(sections, domain.Section{
			Content: text,
			Source:  fmt.Sprintf("%s:page_%d", name, pageNum),
			File:    name,
		})
	}
	return sections, nil
}

// docx is a zip archive; paragraph text lives in word/document.xml as w:t
// runs grouped under w:p elements.
func loadDOCX(path string) ([]domain.Section, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("docx %s: missing word/document.xml", filepath.Base(path))
	}
	rc, err := doc.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var paragraphs []string
	var current strings.Builder
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				var text string
				if err := dec.DecodeElement(&text, &t); err == nil {
					current.WriteString(text)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	full := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(full) == "" {
		return nil, nil
	}
	name := filepath.Base(path)
	return []domain.Section{{Content: full, Source: name, File: name}}, nil
}

func loadText(path string) ([]domain.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return []domain.Section{{Content: string(data), Source: name, File: name}}, nil
}
