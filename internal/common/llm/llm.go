// Package llm wraps the hosted text-completion and embedding services.
package llm

import (
	"context"
	"errors"
)

var (
	ErrUnavailable   = errors.New("LLM_UNAVAILABLE")
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

// CompletionRequest is one system+user prompt exchange.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Completer returns generated text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder returns a dense vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Logger is the subset of the structured logger used here.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}
