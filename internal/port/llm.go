package port

import (
	"context"

	"loanqa/internal/domain"
)

// CompletionClient sends a prompt to a hosted language model.
type CompletionClient interface {
	// Generate performs one synchronous completion call. It never retries.
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.Answer, error)
}

// PromptAssembler renders the question and retrieved chunks into a single prompt.
type PromptAssembler interface {
	Assemble(question string, chunks []domain.TextChunk) (string, error)
}
