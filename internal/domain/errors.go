package domain

import (
	"errors"
	"fmt"
)

// Error categories. Adapters wrap these with %w so callers can match with errors.Is.
var (
	// ErrConfiguration means a required setting or credential is missing or out of range.
	ErrConfiguration = errors.New("configuration error")

	// ErrLoad means the embedding model or the vector index could not be loaded.
	ErrLoad = errors.New("load error")

	// ErrInput means the question was empty or whitespace.
	ErrInput = errors.New("input error")

	// ErrAuth means the completion endpoint rejected the credential.
	ErrAuth = errors.New("authentication error")

	// ErrNetwork means the remote endpoint could not be reached or answered with an error status.
	ErrNetwork = errors.New("network error")

	// ErrRateLimit means the remote endpoint throttled the request or the quota is exhausted.
	ErrRateLimit = errors.New("rate limit or quota exceeded")
)

// Stage names a step of the answering pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageEmbed    Stage = "embed"
	StageRetrieve Stage = "retrieve"
	StageAssemble Stage = "assemble"
	StageGenerate Stage = "generate"
)

// PipelineError reports which pipeline stage failed. It unwraps to the cause.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err for the given stage.
func NewPipelineError(stage Stage, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}
