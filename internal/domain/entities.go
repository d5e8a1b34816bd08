package domain

import (
	"fmt"
	"time"
)

// Document is a source file the index was built from.
type Document struct {
	ID      string
	Path    string
	ModTime time.Time
	Kind    string // "pdf", "markdown", "text"
	Pages   int
}

// Section is a unit of extracted text, one page of a PDF or a whole text file.
type Section struct {
	DocID  string
	Source string
	Page   int
	Text   string
}

// TextChunk is an indexed passage. Ordinal is its insertion position in the index.
type TextChunk struct {
	ID      string
	Source  string
	Page    int
	Ordinal int
	Content string
	Vector  []float32
}

// Query is built per request and discarded after the answer is produced.
type Query struct {
	RawQuestion string
	Embedding   []float32
}

type ScoredChunk struct {
	Chunk TextChunk
	Score float64
}

// GenerationSettings are the parameters a user may change between questions.
type GenerationSettings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Validate checks the bounds the completion endpoint expects.
func (s GenerationSettings) Validate() error {
	if s.Model == "" {
		return fmt.Errorf("%w: model must not be empty", ErrConfiguration)
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f out of range [0, 1]", ErrConfiguration, s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrConfiguration, s.MaxTokens)
	}
	return nil
}

// GenerationRequest is one call to the completion endpoint.
type GenerationRequest struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

func (r GenerationRequest) Settings() GenerationSettings {
	return GenerationSettings{Model: r.Model, Temperature: r.Temperature, MaxTokens: r.MaxTokens}
}

// Validate rejects requests that must not reach the network.
func (r GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt must not be empty", ErrConfiguration)
	}
	return r.Settings().Validate()
}

// Answer is the generated reply together with the passages it was grounded on.
type Answer struct {
	Text    string
	Model   string
	Sources []ScoredChunk
}

// Stats summarises an index.
type Stats struct {
	TotalDocs   int
	TotalChunks int
	AvgChunkLen float64
}
