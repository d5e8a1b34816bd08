package fs

import (
	"os"
	"path/filepath"
	"testing"

	"loanqa/internal/port"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_IncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "home", "home-loan.md"), "# Home loan")
	writeFile(t, filepath.Join(root, "personal.txt"), "Personal loan")
	writeFile(t, filepath.Join(root, "logo.png"), "binary")
	writeFile(t, filepath.Join(root, "index_bom", "notes.txt"), "should be skipped")

	w := NewWalker([]string{"**/*.md", "**/*.txt"}, []string{"**/index_bom/**", "index_bom/"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	if filepath.Base(files[0].Path) != "home-loan.md" || filepath.Base(files[1].Path) != "personal.txt" {
		t.Errorf("expected sorted [home-loan.md personal.txt], got %v", files)
	}
}

func TestExtractor_TextFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "education.md")
	writeFile(t, path, "Maha Vidya education loan\nUp to 20 lakh for studies abroad.")

	doc, sections, err := NewExtractor().Extract(port.FileInfo{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != "markdown" {
		t.Errorf("expected kind markdown, got %s", doc.Kind)
	}
	if doc.Pages != 1 || len(sections) != 1 {
		t.Fatalf("expected one section, got %d", len(sections))
	}
	if sections[0].DocID != doc.ID || sections[0].Source != path {
		t.Errorf("section not linked to its document: %+v", sections[0])
	}
}

func TestExtractor_BlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, path, "\n  \n")

	_, sections, err := NewExtractor().Extract(port.FileInfo{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 0 {
		t.Errorf("expected no sections for blank file, got %d", len(sections))
	}
}

func TestExtractor_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "this is not a pdf")

	if _, _, err := NewExtractor().Extract(port.FileInfo{Path: path}); err == nil {
		t.Error("expected error for invalid pdf")
	}
}
