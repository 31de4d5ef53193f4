package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/prompt"
)

var quietLog = slog.New(slog.DiscardHandler)

// wordTokenizer counts one token per whitespace-separated word.
var wordTokenizer = llm.TokenizerFunc(func(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
})

// scriptedGenerator answers by task prefix and records every request.
type scriptedGenerator struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(req llm.Request) (llm.Result, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (llm.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.respond(req)
}

func (g *scriptedGenerator) calls(prefix string) []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []llm.Request
	for _, r := range g.requests {
		if strings.HasPrefix(r.Task, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (g *scriptedGenerator) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func text(s string) (llm.Result, error) {
	return llm.Result{Text: s, FinishReason: llm.FinishStop}, nil
}

// testParams yields a single-pass budget of 1000 words and a chunk budget of
// 100 words under wordTokenizer.
func testParams() Params {
	base := len(strings.Fields(prompt.Overhead()))
	p := DefaultParams()
	p.ContextFactor = 1
	p.ContextSize = base + 1100
	p.SinglePassOutputTokens = 100
	p.PartialOutputTokens = 1000
	return p
}

func newTestOrchestrator(gen llm.Generator, p Params) *Orchestrator {
	h := llm.NewHandle(gen, wordTokenizer, llm.HandleConfig{Model: "test"}, quietLog)
	return NewOrchestrator(h, p, quietLog)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (s *stageRecorder) record(st Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, st)
}

func (s *stageRecorder) list() []Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Stage(nil), s.stages...)
}
