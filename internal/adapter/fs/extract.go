package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"loanqa/internal/domain"
	"loanqa/internal/port"
)

// Extractor reads text out of brochures and notes. PDFs yield one section per
// page; Markdown and plain text yield a single section.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(file port.FileInfo) (domain.Document, []domain.Section, error) {
	doc := domain.Document{
		ID:      generateDocID(file.Path),
		Path:    file.Path,
		ModTime: time.Unix(file.ModTime, 0),
		Kind:    detectKind(file.Path),
	}

	var sections []domain.Section
	var err error
	switch doc.Kind {
	case "pdf":
		sections, err = extractPDF(doc)
	default:
		sections, err = extractText(doc)
	}
	if err != nil {
		return doc, nil, err
	}

	doc.Pages = len(sections)
	return doc, sections, nil
}

func extractPDF(doc domain.Document) ([]domain.Section, error) {
	f, r, err := pdf.Open(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var sections []domain.Section
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections = append(sections, domain.Section{
			DocID:  doc.ID,
			Source: doc.Path,
			Page:   i,
			Text:   text,
		})
	}
	return sections, nil
}

func extractText(doc domain.Document) ([]domain.Section, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []domain.Section{{
		DocID:  doc.ID,
		Source: doc.Path,
		Page:   1,
		Text:   string(data),
	}}, nil
}

func detectKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".md", ".markdown":
		return "markdown"
	default:
		return "text"
	}
}

func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
