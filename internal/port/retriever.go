package port

import (
	"context"

	"loanqa/internal/domain"
)

// VectorIndex is an immutable set of embedded chunks searchable by similarity.
type VectorIndex interface {
	// Search returns at most k chunks by descending similarity, ties in insertion order.
	Search(query []float32, k int) ([]domain.ScoredChunk, error)

	Dimension() int

	Len() int
}

// Retriever returns the chunks most relevant to a query vector.
type Retriever interface {
	TopK(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error)
}
