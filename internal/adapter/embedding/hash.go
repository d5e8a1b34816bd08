package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"loanqa/internal/adapter/analyzer"
)

// HashEmbedder is a local embedder using signed feature hashing over unigrams
// and bigrams. Texts sharing terms get similar vectors, which is enough for
// offline builds and tests. It never touches the network.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int, tokenizer *analyzer.Tokenizer) *HashEmbedder {
	return &HashEmbedder{dimension: dimension, tokenizer: tokenizer}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	v := make([]float32, e.dimension)
	tokens := e.tokenizer.Tokenize(text)
	for i, tok := range tokens {
		e.add(v, tok, 1)
		if i > 0 {
			e.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return normalize(v)
}

func (e *HashEmbedder) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("feature-hash-%d", e.dimension)
}
