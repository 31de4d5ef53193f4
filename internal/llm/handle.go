package llm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/semaphore"
)

// HandleConfig describes the model behind a Handle.
type HandleConfig struct {
	Model string
	// ContextSize enables the prompt-near-limit warning when positive.
	ContextSize int
	// StatsWindow bounds the rolling stats window; zero means one hour.
	StatsWindow time.Duration
}

// Handle is the single, exclusively owned entry point to a model. Every
// tokenizer and generator call is serialised through a weight-one semaphore,
// so concurrent callers queue rather than overlap.
type Handle struct {
	gen   Generator
	tok   Tokenizer
	cfg   HandleConfig
	sem   *semaphore.Weighted
	stats *Stats
	log   *slog.Logger
}

func NewHandle(gen Generator, tok Tokenizer, cfg HandleConfig, log *slog.Logger) *Handle {
	return &Handle{
		gen:   gen,
		tok:   tok,
		cfg:   cfg,
		sem:   semaphore.NewWeighted(1),
		stats: NewStats(cfg.StatsWindow),
		log:   log,
	}
}

// Available reports ErrUnavailable when either capability is missing.
func (h *Handle) Available() error {
	if h == nil || h.gen == nil || h.tok == nil {
		return ErrUnavailable
	}
	return nil
}

func (h *Handle) Model() string { return h.cfg.Model }

func (h *Handle) Stats() StatsSnapshot { return h.stats.Snapshot() }

// CountTokens implements Tokenizer.
func (h *Handle) CountTokens(ctx context.Context, text string) (int, error) {
	if h.tok == nil {
		return 0, ErrUnavailable
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer h.sem.Release(1)
	return h.tok.CountTokens(ctx, text)
}

// Generate implements Generator. Truncation and unusual finish reasons are
// logged, never returned as errors.
func (h *Handle) Generate(ctx context.Context, req Request) (Result, error) {
	if h.gen == nil {
		return Result{}, ErrUnavailable
	}
	log := h.log.With("task", req.Task)

	promptTokens := 0
	if h.tok != nil {
		n, err := h.CountTokens(ctx, req.Prompt)
		if err != nil {
			log.Warn("could not count prompt tokens", "error", err)
		} else {
			promptTokens = n
		}
	}
	if h.cfg.ContextSize > 0 && promptTokens > 0 &&
		float64(promptTokens+req.MaxOutputTokens) > float64(h.cfg.ContextSize)*0.98 {
		log.Warn("prompt plus output may exceed context size",
			"prompt_tokens", promptTokens,
			"max_output_tokens", req.MaxOutputTokens,
			"context_size", h.cfg.ContextSize,
		)
	}
	log.Info("sending prompt",
		"prompt_tokens", promptTokens,
		"max_output_tokens", req.MaxOutputTokens,
		"temperature", req.Temperature,
	)

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	start := time.Now()
	res, err := h.gen.Generate(ctx, req)
	elapsed := time.Since(start)
	h.sem.Release(1)

	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", req.Task, err)
	}
	if res.PromptTokens == 0 {
		res.PromptTokens = promptTokens
	}
	h.stats.RecordCall(elapsed.Milliseconds(), res)

	var rate float64
	if secs := elapsed.Seconds(); secs > 0 && res.OutputTokens > 0 {
		rate = float64(res.OutputTokens) / secs
	}
	log.Info("generation complete",
		"duration_ms", elapsed.Milliseconds(),
		"prompt_tokens", res.PromptTokens,
		"output_tokens", res.OutputTokens,
		"tokens_per_sec", rate,
		"finish_reason", res.FinishReason,
	)

	switch {
	case res.FinishReason == FinishLength:
		log.Warn("generation truncated at max output tokens", "max_output_tokens", req.MaxOutputTokens)
	case !usualFinish(res.FinishReason, req.StopSequences):
		log.Warn("unusual finish reason", "finish_reason", res.FinishReason)
	}
	return res, nil
}

func usualFinish(reason string, stops []string) bool {
	switch reason {
	case FinishStop, "unknown", "":
		return true
	}
	return slices.Contains(stops, reason)
}
