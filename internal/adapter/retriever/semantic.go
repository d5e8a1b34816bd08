package retriever

import (
	"context"
	"fmt"

	"loanqa/internal/domain"
	"loanqa/internal/port"
)

// SemanticRetriever answers top-k queries against a loaded vector index,
// optionally dropping results below a minimum score.
type SemanticRetriever struct {
	index    port.VectorIndex
	minScore float64
}

func NewSemanticRetriever(index port.VectorIndex, minScore float64) *SemanticRetriever {
	return &SemanticRetriever{
		index:    index,
		minScore: minScore,
	}
}

// TopK returns at most k chunks ordered by descending similarity.
func (r *SemanticRetriever) TopK(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.index == nil {
		return nil, fmt.Errorf("%w: vector index not loaded", domain.ErrLoad)
	}

	results, err := r.index.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if r.minScore > 0 {
		results = filterByThreshold(results, r.minScore)
	}
	return results, nil
}

// filterByThreshold removes results below the minimum score, keeping order.
func filterByThreshold(results []domain.ScoredChunk, minScore float64) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
