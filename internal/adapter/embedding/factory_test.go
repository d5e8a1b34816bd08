package embedding

import (
	"errors"
	"testing"

	"loanqa/config"
	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/domain"
)

func TestNew(t *testing.T) {
	tok := analyzer.NewTokenizer(true)
	creds := config.Credentials{APIKey: "k", BaseURL: "http://localhost:1"}

	e, err := New(config.EmbeddingConfig{Provider: "hash", Dimension: 32}, config.Credentials{}, tok)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HashEmbedder); !ok || e.Dimension() != 32 {
		t.Errorf("expected 32-dim hash embedder, got %T", e)
	}

	e, err = New(config.EmbeddingConfig{Provider: "openai", Model: "m", Dimension: 8}, creds, tok)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*OpenAIEmbedder); !ok || e.ModelName() != "m" {
		t.Errorf("expected openai embedder for m, got %T", e)
	}

	own := config.EmbeddingConfig{Provider: "openai", Model: "m", Dimension: 8, APIKeyEnv: "LOANQA_TEST_EMBED_KEY"}
	_, err = New(own, creds, tok)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration without the embedding key, got %v", err)
	}

	withKey := creds
	withKey.EmbeddingAPIKey = "embed-key"
	if _, err := New(own, withKey, tok); err != nil {
		t.Errorf("expected the resolved embedding key to be used, got %v", err)
	}

	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}, creds, tok); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown provider, got %v", err)
	}
}
