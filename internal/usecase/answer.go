package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"loanqa/internal/domain"
	"loanqa/internal/port"
)

// AnswerUseCase runs the question answering pipeline:
// embed, retrieve, assemble, generate. It keeps no state between calls.
type AnswerUseCase struct {
	embedder  port.Embedder
	retriever port.Retriever
	assembler port.PromptAssembler
	llm       port.CompletionClient
	topK      int
	defaults  domain.GenerationSettings
	models    []string
	logger    *slog.Logger
}

// AnswerOptions holds the non-component settings of an AnswerUseCase.
type AnswerOptions struct {
	TopK     int
	Defaults domain.GenerationSettings
	// Models restricts which models callers may pick. Empty allows any.
	Models []string
	Logger *slog.Logger
}

// NewAnswerUseCase creates a new answer use case.
func NewAnswerUseCase(
	embedder port.Embedder,
	retriever port.Retriever,
	assembler port.PromptAssembler,
	llm port.CompletionClient,
	opts AnswerOptions,
) *AnswerUseCase {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AnswerUseCase{
		embedder:  embedder,
		retriever: retriever,
		assembler: assembler,
		llm:       llm,
		topK:      opts.TopK,
		defaults:  opts.Defaults,
		models:    opts.Models,
		logger:    opts.Logger,
	}
}

// Defaults returns the settings used by Answer.
func (u *AnswerUseCase) Defaults() domain.GenerationSettings {
	return u.defaults
}

// Answer answers question with the default generation settings.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (domain.Answer, error) {
	return u.AnswerWith(ctx, question, u.defaults)
}

// AnswerWith answers question with the given settings. An empty question
// returns domain.ErrInput without touching any component. Any later failure
// is returned as a *domain.PipelineError.
func (u *AnswerUseCase) AnswerWith(ctx context.Context, question string, settings domain.GenerationSettings) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("%w: please enter a valid question", domain.ErrInput)
	}

	if err := u.checkSettings(settings); err != nil {
		return domain.Answer{}, domain.NewPipelineError(domain.StageValidate, err)
	}

	start := time.Now()

	vectors, err := u.embedder.Embed(ctx, []string{question})
	if err != nil {
		return domain.Answer{}, domain.NewPipelineError(domain.StageEmbed, err)
	}
	if len(vectors) != 1 {
		return domain.Answer{}, domain.NewPipelineError(domain.StageEmbed,
			fmt.Errorf("embedder returned %d vectors for one question", len(vectors)))
	}
	query := domain.Query{RawQuestion: question, Embedding: vectors[0]}

	results, err := u.retriever.TopK(ctx, query.Embedding, u.topK)
	if err != nil {
		return domain.Answer{}, domain.NewPipelineError(domain.StageRetrieve, err)
	}

	chunks := make([]domain.TextChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	prompt, err := u.assembler.Assemble(query.RawQuestion, chunks)
	if err != nil {
		return domain.Answer{}, domain.NewPipelineError(domain.StageAssemble, err)
	}

	answer, err := u.llm.Generate(ctx, domain.GenerationRequest{
		Prompt:      prompt,
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})
	if err != nil {
		return domain.Answer{}, domain.NewPipelineError(domain.StageGenerate, err)
	}
	if strings.TrimSpace(answer.Text) == "" {
		return domain.Answer{}, domain.NewPipelineError(domain.StageGenerate,
			fmt.Errorf("%w: model returned an empty answer", domain.ErrNetwork))
	}

	answer.Sources = results
	if answer.Model == "" {
		answer.Model = settings.Model
	}

	u.logger.Info("question answered",
		"model", settings.Model,
		"chunks", len(results),
		"prompt_chars", len(prompt),
		"duration", time.Since(start),
	)
	return answer, nil
}

// Retrieve embeds question and returns the chunks the pipeline would use.
func (u *AnswerUseCase) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: please enter a valid question", domain.ErrInput)
	}
	if k <= 0 {
		k = u.topK
	}

	vectors, err := u.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, domain.NewPipelineError(domain.StageEmbed, err)
	}
	if len(vectors) != 1 {
		return nil, domain.NewPipelineError(domain.StageEmbed,
			fmt.Errorf("embedder returned %d vectors for one question", len(vectors)))
	}

	results, err := u.retriever.TopK(ctx, vectors[0], k)
	if err != nil {
		return nil, domain.NewPipelineError(domain.StageRetrieve, err)
	}
	return results, nil
}

// Prompt returns the prompt that would be sent for question, without calling the model.
func (u *AnswerUseCase) Prompt(ctx context.Context, question string) (string, error) {
	results, err := u.Retrieve(ctx, question, u.topK)
	if err != nil {
		return "", err
	}
	chunks := make([]domain.TextChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	prompt, err := u.assembler.Assemble(strings.TrimSpace(question), chunks)
	if err != nil {
		return "", domain.NewPipelineError(domain.StageAssemble, err)
	}
	return prompt, nil
}

func (u *AnswerUseCase) checkSettings(s domain.GenerationSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(u.models) > 0 && !slices.Contains(u.models, s.Model) {
		return fmt.Errorf("%w: model %q is not one of %v", domain.ErrConfiguration, s.Model, u.models)
	}
	return nil
}
