package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/store"
)

// OpenHandle builds the model handle for the configured provider and
// tokenizer. The returned func releases provider resources.
func (c Config) OpenHandle(ctx context.Context, log *slog.Logger) (*llm.Handle, func(), error) {
	var (
		gen     llm.Generator
		gemini  *llm.GeminiClient
		model   string
		cleanup = func() {}
	)

	if c.Provider == "gemini" || c.Tokenizer == "gemini" {
		g, err := llm.NewGeminiClient(ctx, c.GeminiAPIKey, c.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client: %w", err)
		}
		gemini = g
	}

	switch c.Provider {
	case "gemini":
		gen, model = gemini, gemini.Model()
	default:
		claude := llm.NewAnthropicClient(c.AnthropicAPIKey, c.AnthropicModel)
		gen, model = claude, claude.Model()
		cleanup = claude.Close
	}

	var tok llm.Tokenizer
	switch c.Tokenizer {
	case "gemini":
		tok = gemini
	case "estimate":
		tok = llm.EstimateTokenizer{}
	default:
		t, err := llm.NewTiktokenTokenizer(c.TiktokenEncoding)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("tiktoken: %w", err)
		}
		tok = t
	}

	h := llm.NewHandle(llm.NewRetrying(gen, log), tok, llm.HandleConfig{
		Model:       model,
		ContextSize: c.ContextSize,
	}, log)
	return h, cleanup, nil
}

// OpenStore returns the pathstore-backed store when PATHSTORE_URL is set,
// otherwise a directory store under OutputDir.
func (c Config) OpenStore() (store.Store, func(), error) {
	if c.PathstoreURL != "" {
		ps := store.NewPathstoreStore(c.PathstoreURL, c.PathstoreAPIKey, "")
		return ps, ps.Close, nil
	}
	fs, err := store.NewFileStore(c.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

func (c Config) ParserOptions() parser.Options {
	return parser.Options{PDFFallbackPdftotext: c.PDFFallbackPdftotext}
}
