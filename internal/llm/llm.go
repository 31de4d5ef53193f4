// Package llm defines the tokenizer and generator capabilities the outline
// pipeline depends on, plus the concrete providers that implement them.
package llm

import (
	"context"
	"errors"
)

// Finish reasons normalised across providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// ErrUnavailable is returned when a Handle has no generator or tokenizer.
var ErrUnavailable = errors.New("llm: generator unavailable")

// Tokenizer counts tokens for a fixed model configuration.
type Tokenizer interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// Generator produces text for a single prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Request is one generation call.
type Request struct {
	// Task is a short human-readable label used in logs.
	Task            string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
	StopSequences   []string
}

// Result is the outcome of a generation call. Text may be empty.
type Result struct {
	Text         string
	FinishReason string
	PromptTokens int
	OutputTokens int
}

// TokenizerFunc adapts a plain function to the Tokenizer interface.
type TokenizerFunc func(ctx context.Context, text string) (int, error)

func (f TokenizerFunc) CountTokens(ctx context.Context, text string) (int, error) {
	return f(ctx, text)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
