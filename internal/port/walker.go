package port

import "loanqa/internal/domain"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// SectionExtractor turns a source file into text sections.
type SectionExtractor interface {
	Extract(file FileInfo) (domain.Document, []domain.Section, error)
}
