package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/outliner/internal/chunker"
	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/prompt"
)

// Stage is a step of an outline or notes run.
type Stage string

const (
	StageInit       Stage = "init"
	StageSinglePass Stage = "single-pass"
	StageChunking   Stage = "chunking"
	StageMerge      Stage = "merge"
	StageSections   Stage = "section-elaboration"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Mode records how an outline was produced.
type Mode string

const (
	ModeSinglePass Mode = "single-pass"
	ModeChunked    Mode = "chunked"
)

// Partial is the outline generated for one chunk. Index is 1-based.
type Partial struct {
	Index int
	Total int
	Text  string
}

// OutlineResult is a finished outline and how it was built.
type OutlineResult struct {
	Text           string  `json:"text"`
	Mode           Mode    `json:"mode"`
	DocumentTokens int     `json:"document_tokens"`
	Budgets        Budgets `json:"budgets"`
	Chunks         int     `json:"chunks"`
	Partials       int     `json:"partials"`
	Skipped        int     `json:"skipped_words"`
	Merged         bool    `json:"merged"`
}

// Orchestrator turns documents into outlines and outlines into notes. It
// issues one generation call at a time, in document order.
type Orchestrator struct {
	h      *llm.Handle
	params Params
	log    *slog.Logger

	onStage   func(Stage)
	onChunk   func(done, total int)
	onSection func(done, total int)
}

func NewOrchestrator(h *llm.Handle, p Params, log *slog.Logger) *Orchestrator {
	return &Orchestrator{h: h, params: p, log: log}
}

// WithProgress returns a copy of o that reports stage transitions and
// per-chunk and per-section progress. Any callback may be nil.
func (o *Orchestrator) WithProgress(onStage func(Stage), onChunk, onSection func(done, total int)) *Orchestrator {
	cp := *o
	cp.onStage = onStage
	cp.onChunk = onChunk
	cp.onSection = onSection
	return &cp
}

func (o *Orchestrator) Params() Params { return o.params }

// run tracks the state of one invocation.
type run struct {
	o     *Orchestrator
	stage Stage
}

func (o *Orchestrator) newRun() *run {
	r := &run{o: o}
	r.enter(StageInit)
	return r
}

func (r *run) enter(s Stage) {
	r.stage = s
	if r.o.onStage != nil {
		r.o.onStage(s)
	}
}

func (r *run) fail(err error) error {
	failed := r.stage
	r.enter(StageFailed)
	return stageErr(failed, err)
}

func (o *Orchestrator) ready() error {
	if err := o.params.Validate(); err != nil {
		return err
	}
	if err := o.h.Available(); err != nil {
		return fmt.Errorf("%w: %w", ErrGeneratorUnavailable, err)
	}
	return nil
}

// BuildOutline produces one numbered outline for text. Documents that fit
// the single-pass budget take one generation call; larger ones are chunked,
// outlined per chunk and merged.
func (o *Orchestrator) BuildOutline(ctx context.Context, text string) (*OutlineResult, error) {
	r := o.newRun()

	if err := o.ready(); err != nil {
		return nil, r.fail(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, r.fail(fmt.Errorf("%w: empty document", ErrValidation))
	}

	base, err := baseTokens(ctx, o.h)
	if err != nil {
		return nil, r.fail(fmt.Errorf("count base prompt tokens: %w", err))
	}
	budgets, err := ComputeBudgets(o.params, base)
	if err != nil {
		return nil, r.fail(err)
	}
	docTokens, err := o.h.CountTokens(ctx, text)
	if err != nil {
		return nil, r.fail(fmt.Errorf("count document tokens: %w", err))
	}

	o.log.Info("outline budgets",
		"document_tokens", docTokens,
		"base_prompt_tokens", budgets.BasePromptTokens,
		"single_pass_budget", budgets.SinglePass,
		"chunk_budget", budgets.Chunk,
	)

	res := &OutlineResult{DocumentTokens: docTokens, Budgets: budgets}
	if docTokens <= budgets.SinglePass {
		err = o.singlePass(ctx, r, text, res)
	} else {
		err = o.chunked(ctx, r, text, res)
	}
	if err != nil {
		return nil, err
	}
	r.enter(StageDone)
	return res, nil
}

func (o *Orchestrator) singlePass(ctx context.Context, r *run, text string, res *OutlineResult) error {
	r.enter(StageSinglePass)
	res.Mode = ModeSinglePass

	out, err := o.h.Generate(ctx, llm.Request{
		Task:            "outline (single pass)",
		Prompt:          prompt.SinglePass(text),
		MaxOutputTokens: o.params.SinglePassOutputTokens,
		Temperature:     o.params.OutlineTemperature,
	})
	if err != nil {
		return r.fail(fmt.Errorf("%w: %w", ErrGeneration, err))
	}
	if strings.TrimSpace(out.Text) == "" {
		return r.fail(ErrNoContent)
	}
	res.Text = strings.TrimSpace(out.Text)
	return nil
}

func (o *Orchestrator) chunked(ctx context.Context, r *run, text string, res *OutlineResult) error {
	r.enter(StageChunking)
	res.Mode = ModeChunked

	cfg := chunker.Config{
		Budget:             res.Budgets.Chunk,
		Overlap:            o.params.OverlapWords,
		OverestimateFactor: o.params.OverestimateFactor,
		MinWindow:          o.params.MinWindow,
	}
	split, err := chunker.SplitText(ctx, text, cfg, o.h, o.log)
	if err != nil {
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return r.fail(err)
	}
	res.Chunks = len(split.Chunks)
	res.Skipped = len(split.Skipped)
	o.log.Info("document chunked", "chunks", res.Chunks, "skipped_words", res.Skipped)

	partials := make([]Partial, 0, len(split.Chunks))
	total := len(split.Chunks)
	for i, c := range split.Chunks {
		p, err := o.partial(ctx, c, i+1, total)
		if o.onChunk != nil {
			o.onChunk(i+1, total)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.fail(ctxErr)
			}
			o.log.Warn("partial outline failed, skipping", "chunk", i+1, "total", total, "error", err)
			continue
		}
		if p.Text == "" {
			o.log.Warn("empty partial outline, skipping", "chunk", i+1, "total", total)
			continue
		}
		partials = append(partials, p)
	}
	res.Partials = len(partials)

	switch len(partials) {
	case 0:
		return r.fail(ErrNoContent)
	case 1:
		o.log.Info("single partial outline, skipping merge")
		res.Text = partials[0].Text
		return nil
	}

	r.enter(StageMerge)
	merged, err := o.merge(ctx, partials)
	if err != nil {
		return r.fail(err)
	}
	res.Text = merged
	res.Merged = true
	return nil
}

func (o *Orchestrator) partial(ctx context.Context, c chunker.Chunk, index, total int) (Partial, error) {
	out, err := o.h.Generate(ctx, llm.Request{
		Task:            fmt.Sprintf("partial outline %d/%d", index, total),
		Prompt:          prompt.Partial(c.Text, index, total),
		MaxOutputTokens: o.params.PartialOutputTokens,
		Temperature:     o.params.OutlineTemperature,
	})
	if err != nil {
		return Partial{}, err
	}
	return Partial{Index: index, Total: total, Text: strings.TrimSpace(out.Text)}, nil
}

func (o *Orchestrator) merge(ctx context.Context, partials []Partial) (string, error) {
	texts := make([]string, len(partials))
	for i, p := range partials {
		texts[i] = p.Text
	}
	out, err := o.h.Generate(ctx, llm.Request{
		Task:            fmt.Sprintf("merge %d partial outlines", len(partials)),
		Prompt:          prompt.Merge(texts),
		MaxOutputTokens: o.params.MergeOutputTokens,
		Temperature:     o.params.MergeTemperature,
		StopSequences:   prompt.MergeStopSequences,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}
