package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"loanqa/internal/adapter/apierr"
	"loanqa/internal/domain"
)

// OpenAIClient sends single-message chat completion requests to an
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	logger *slog.Logger
}

// ClientOptions configures an OpenAIClient.
type ClientOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewOpenAIClient(opts ClientOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: completion API key is required", domain.ErrConfiguration)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		logger: opts.Logger,
	}, nil
}

// Generate performs exactly one completion call. Invalid requests are
// rejected before anything is sent.
func (c *OpenAIClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Answer, error) {
	if err := req.Validate(); err != nil {
		return domain.Answer{}, err
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: wireTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return domain.Answer{}, apierr.Classify(err)
	}
	if len(resp.Choices) == 0 {
		return domain.Answer{}, fmt.Errorf("%w: no completion returned", domain.ErrNetwork)
	}

	c.logger.Debug("completion finished",
		"model", req.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
		"duration", time.Since(start),
	)

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return domain.Answer{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
	}, nil
}

// wireTemperature maps 0 to the smallest positive float because the client
// library omits zero values from the request body, which would make the
// server fall back to its own default.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
