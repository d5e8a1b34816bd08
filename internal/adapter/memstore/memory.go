package memstore

import (
	"fmt"
	"math"
	"sort"

	"loanqa/internal/domain"
)

// Metric names a similarity function.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// VectorIndex holds every chunk and its vector in memory, in insertion order.
// It is built once and never mutated, so concurrent searches need no locking.
type VectorIndex struct {
	dimension int
	metric    Metric
	chunks    []domain.TextChunk
}

// NewVectorIndex validates chunks and takes ownership of the slice.
// Chunk ordinals are rewritten to their position in the slice.
func NewVectorIndex(dimension int, metric Metric, chunks []domain.TextChunk) (*VectorIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dimension)
	}
	switch metric {
	case MetricCosine, MetricL2:
	default:
		return nil, fmt.Errorf("unsupported metric %q", metric)
	}
	for i := range chunks {
		if len(chunks[i].Vector) != dimension {
			return nil, fmt.Errorf("chunk %s: vector dimension %d, expected %d", chunks[i].ID, len(chunks[i].Vector), dimension)
		}
		chunks[i].Ordinal = i
	}
	return &VectorIndex{dimension: dimension, metric: metric, chunks: chunks}, nil
}

// Search scores every chunk against query and returns the best k by
// descending score. Equal scores keep insertion order.
func (x *VectorIndex) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", x.dimension, len(query))
	}
	if len(x.chunks) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, len(x.chunks))
	for i, c := range x.chunks {
		scored[i] = domain.ScoredChunk{Chunk: c, Score: x.score(query, c.Vector)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k:k], nil
}

func (x *VectorIndex) score(a, b []float32) float64 {
	if x.metric == MetricL2 {
		return 1 / (1 + l2Distance(a, b))
	}
	return cosineSimilarity(a, b)
}

func (x *VectorIndex) Dimension() int {
	return x.dimension
}

func (x *VectorIndex) Len() int {
	return len(x.chunks)
}

func (x *VectorIndex) Metric() Metric {
	return x.metric
}

// Chunks returns a copy of the indexed chunks in insertion order.
func (x *VectorIndex) Chunks() []domain.TextChunk {
	out := make([]domain.TextChunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// cosineSimilarity returns 0 when either vector is zero.
func cosineSimilarity(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
