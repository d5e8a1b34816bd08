package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/domain"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (norm(a) * norm(b))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(256, analyzer.NewTokenizer(true))
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"personal loan interest rate"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, []string{"personal loan interest rate"})
	if err != nil {
		t.Fatal(err)
	}

	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("embedding differs at %d: %f vs %f", i, a[0][i], b[0][i])
		}
	}
	if math.Abs(norm(a[0])-1) > 1e-5 {
		t.Errorf("expected unit vector, got norm %f", norm(a[0]))
	}
	if e.Dimension() != 256 || len(a[0]) != 256 {
		t.Errorf("expected dimension 256, got %d", len(a[0]))
	}
}

func TestHashEmbedder_Similarity(t *testing.T) {
	e := NewHashEmbedder(512, analyzer.NewTokenizer(true))

	vecs, err := e.Embed(context.Background(), []string{
		"What is the interest rate for a personal loan?",
		"Personal loan interest rates start at 10.5% per annum.",
		"Gold loan tenure is twelve months with bullet repayment.",
	})
	if err != nil {
		t.Fatal(err)
	}

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related text to score higher: related=%f unrelated=%f", related, unrelated)
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	e := NewHashEmbedder(64, analyzer.NewTokenizer(true))

	vecs, err := e.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	if norm(vecs[0]) != 0 {
		t.Error("expected zero vector for empty text")
	}
}

// fakeEmbeddingServer answers /v1/embeddings with vectors of the given dimension.
func fakeEmbeddingServer(t *testing.T, dim int, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		// Reverse order to check the client sorts by index.
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dim)
			v[i%dim] = float32(i + 2)
			data = append(data, item{Object: "embedding", Embedding: v, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := fakeEmbeddingServer(t, 4, http.StatusOK)
	e, err := NewOpenAIEmbedder(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "all-mpnet", Dimension: 4, BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	// Batches of two: third text is index 0 of its batch.
	expectedHot := []int{0, 1, 0}
	for i, v := range vecs {
		if v[expectedHot[i]] != 1 {
			t.Errorf("vector %d: expected unit value at %d, got %v", i, expectedHot[i], v)
		}
	}
	if err := e.Probe(context.Background()); err != nil {
		t.Errorf("probe failed: %v", err)
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := fakeEmbeddingServer(t, 8, http.StatusOK)
	e, err := NewOpenAIEmbedder(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "all-mpnet", Dimension: 4})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Probe(context.Background()); !errors.Is(err, domain.ErrLoad) {
		t.Errorf("expected ErrLoad, got %v", err)
	}
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	srv := fakeEmbeddingServer(t, 4, http.StatusInternalServerError)
	e, err := NewOpenAIEmbedder(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "all-mpnet", Dimension: 4})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Embed(context.Background(), []string{"q"}); !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
	if err := e.Probe(context.Background()); !errors.Is(err, domain.ErrLoad) {
		t.Errorf("expected probe failure to be ErrLoad, got %v", err)
	}
}

func TestOpenAIEmbedder_ErrorCategory(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuth},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeEmbeddingServer(t, 4, tt.status)
			e, err := NewOpenAIEmbedder(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "all-mpnet", Dimension: 4})
			if err != nil {
				t.Fatal(err)
			}

			if _, err := e.Embed(context.Background(), []string{"q"}); !errors.Is(err, tt.want) {
				t.Errorf("Embed: expected %v, got %v", tt.want, err)
			}
			err = e.Probe(context.Background())
			if !errors.Is(err, domain.ErrLoad) || !errors.Is(err, tt.want) {
				t.Errorf("Probe: expected ErrLoad and %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	if _, err := NewOpenAIEmbedder(Options{Dimension: 4}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing model, got %v", err)
	}
	if _, err := NewOpenAIEmbedder(Options{Model: "m"}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing dimension, got %v", err)
	}
}
