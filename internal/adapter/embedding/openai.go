package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"loanqa/internal/adapter/apierr"
	"loanqa/internal/domain"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. This covers
// OpenAI itself, hosted sentence-transformers servers and Ollama.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
}

// Options configures an OpenAIEmbedder.
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", domain.ErrConfiguration)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive", domain.ErrConfiguration)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		dimension: opts.Dimension,
		batchSize: opts.BatchSize,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", apierr.Classify(err))
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrNetwork, len(texts), len(resp.Data))
	}

	// The API may return items out of order; Index is authoritative.
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: model %s returned dimension %d, expected %d",
				domain.ErrLoad, e.model, len(d.Embedding), e.dimension)
		}
		vectors[i] = normalize(d.Embedding)
	}
	return vectors, nil
}

// Probe embeds a fixed string once to check the endpoint is reachable and
// serves vectors of the configured dimension. Failures wrap ErrLoad and keep
// the underlying category.
func (e *OpenAIEmbedder) Probe(ctx context.Context) error {
	if _, err := e.embedBatch(ctx, []string{"loan"}); err != nil {
		if errors.Is(err, domain.ErrLoad) {
			return err
		}
		return fmt.Errorf("%w: embedding model %s unavailable: %w", domain.ErrLoad, e.model, err)
	}
	return nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// normalize scales v to unit length in place. The zero vector is returned unchanged.
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
