package port

import "loanqa/internal/domain"

type Chunker interface {
	Chunk(section domain.Section) ([]domain.TextChunk, error)
}

type Tokenizer interface {
	Tokenize(text string) []string

	CountTokens(text string) int
}
