package cli

import (
	"context"
	"log/slog"
	"time"

	"loanqa/config"
	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/adapter/embedding"
	"loanqa/internal/adapter/llm"
	"loanqa/internal/adapter/prompt"
	"loanqa/internal/adapter/retriever"
	"loanqa/internal/adapter/store"
	"loanqa/internal/port"
	"loanqa/internal/usecase"
)

// pipeline is everything loaded at startup for answering questions.
type pipeline struct {
	answer   *usecase.AnswerUseCase
	manifest *store.Manifest
}

// buildPipeline resolves credentials, loads the embedder and the index, and
// wires the answering pipeline. Nothing is served until it succeeds.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	creds, err := config.ResolveCredentials(cfg.Secrets, cfg.Embedding)
	if err != nil {
		return nil, err
	}

	tokenizer := analyzer.NewTokenizer(true)

	emb, err := embedding.New(cfg.Embedding, creds, tokenizer)
	if err != nil {
		return nil, err
	}
	if p, ok := emb.(port.Prober); ok {
		if err := p.Probe(ctx); err != nil {
			return nil, err
		}
	}

	idx, manifest, err := store.LoadIndex(cfg.Index.Path(), store.Expectation{
		EmbeddingModel: emb.ModelName(),
		Dimension:      emb.Dimension(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("index loaded",
		"path", cfg.Index.Path(),
		"chunks", manifest.ChunkCount,
		"docs", manifest.DocCount,
		"model", manifest.EmbeddingModel,
		"build_id", manifest.BuildID,
	)

	asm, err := prompt.NewAssembler(cfg.Prompt.TemplatePath, cfg.Prompt.MaxContextTokens, tokenizer)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewOpenAIClient(llm.ClientOptions{
		APIKey:  creds.APIKey,
		BaseURL: creds.BaseURL,
		Timeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	uc := usecase.NewAnswerUseCase(
		emb,
		retriever.NewSemanticRetriever(idx, cfg.Retrieve.MinScore),
		asm,
		client,
		usecase.AnswerOptions{
			TopK:     cfg.Retrieve.TopK,
			Defaults: cfg.DefaultSettings(),
			Models:   cfg.LLM.Models,
			Logger:   logger,
		},
	)
	return &pipeline{answer: uc, manifest: manifest}, nil
}

// embedderForBuild creates the embedder for the index command, which needs
// credentials only when embeddings come from a remote service.
func embedderForBuild(cfg *config.Config, tokenizer *analyzer.Tokenizer) (port.Embedder, error) {
	creds, err := config.ResolveEmbeddingCredentials(cfg.Secrets, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return embedding.New(cfg.Embedding, creds, tokenizer)
}
