package pipeline

import (
	"context"
	"fmt"

	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/prompt"
)

// Params sizes and tunes a run. All values are plain inputs; nothing is read
// from the environment here.
type Params struct {
	ContextSize   int
	ContextFactor float64

	SinglePassOutputTokens int
	PartialOutputTokens    int
	MergeOutputTokens      int
	SectionOutputTokens    int

	OutlineTemperature float64
	MergeTemperature   float64
	NotesTemperature   float64

	OverlapWords       int
	OverestimateFactor int
	MinWindow          int
}

// DefaultParams matches an 8k-context local model.
func DefaultParams() Params {
	return Params{
		ContextSize:            8192,
		ContextFactor:          0.7,
		SinglePassOutputTokens: 2048,
		PartialOutputTokens:    1024,
		MergeOutputTokens:      2048,
		SectionOutputTokens:    1024,
		OutlineTemperature:     0.3,
		MergeTemperature:       0.2,
		NotesTemperature:       0.4,
		OverlapWords:           0,
		OverestimateFactor:     4,
		MinWindow:              50,
	}
}

// Validate rejects parameters that cannot produce a budget at all.
func (p Params) Validate() error {
	switch {
	case p.ContextSize <= 0:
		return fmt.Errorf("%w: context size must be positive, got %d", ErrConfiguration, p.ContextSize)
	case p.ContextFactor <= 0 || p.ContextFactor > 1:
		return fmt.Errorf("%w: context factor must be in (0, 1], got %g", ErrConfiguration, p.ContextFactor)
	case p.SinglePassOutputTokens <= 0, p.PartialOutputTokens <= 0,
		p.MergeOutputTokens <= 0, p.SectionOutputTokens <= 0:
		return fmt.Errorf("%w: output token caps must be positive", ErrConfiguration)
	case p.OverlapWords < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrConfiguration, p.OverlapWords)
	}
	return nil
}

// Budgets are the content-token allowances derived from Params.
type Budgets struct {
	BasePromptTokens int `json:"base_prompt_tokens"`
	SinglePass       int `json:"single_pass"`
	Chunk            int `json:"chunk"`
}

// ComputeBudgets subtracts the fixed prompt overhead and the output cap from
// the usable share of the context window.
func ComputeBudgets(p Params, basePromptTokens int) (Budgets, error) {
	usable := int(float64(p.ContextSize) * p.ContextFactor)
	b := Budgets{
		BasePromptTokens: basePromptTokens,
		SinglePass:       usable - basePromptTokens - p.SinglePassOutputTokens,
		Chunk:            usable - basePromptTokens - p.PartialOutputTokens,
	}
	if b.SinglePass <= 0 || b.Chunk <= 0 {
		return b, fmt.Errorf("%w: non-positive token budget (single-pass %d, chunk %d) from context %d x %g minus base %d",
			ErrConfiguration, b.SinglePass, b.Chunk, p.ContextSize, p.ContextFactor, basePromptTokens)
	}
	return b, nil
}

// baseTokens measures the single-pass template with no content.
func baseTokens(ctx context.Context, tok llm.Tokenizer) (int, error) {
	return tok.CountTokens(ctx, prompt.Overhead())
}
