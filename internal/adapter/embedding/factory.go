package embedding

import (
	"fmt"
	"time"

	"loanqa/config"
	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/domain"
	"loanqa/internal/port"
)

// New creates the embedder named by ec.Provider. The OpenAI-compatible
// embedder uses the completion credentials unless ec names its own key
// variable or base URL, in which case creds.EmbeddingAPIKey holds that key.
func New(ec config.EmbeddingConfig, creds config.Credentials, tokenizer *analyzer.Tokenizer) (port.Embedder, error) {
	switch ec.Provider {
	case "hash":
		return NewHashEmbedder(ec.Dimension, tokenizer), nil
	case "openai":
		apiKey := creds.APIKey
		if ec.APIKeyEnv != "" {
			apiKey = creds.EmbeddingAPIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: no API key for the embedding service", domain.ErrConfiguration)
		}
		baseURL := ec.BaseURL
		if baseURL == "" {
			baseURL = creds.BaseURL
		}
		e, err := NewOpenAIEmbedder(Options{
			APIKey:    apiKey,
			BaseURL:   baseURL,
			Model:     ec.Model,
			Dimension: ec.Dimension,
			BatchSize: ec.BatchSize,
			Timeout:   time.Duration(ec.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrConfiguration, ec.Provider)
	}
}
