package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OUTLINER_CONFIG", "")
	t.Setenv("CONTEXT_SIZE", "")
	t.Setenv("LLM_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.ContextSize)
	assert.Equal(t, 0.7, cfg.ContextFactor)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 4, cfg.OverestimateFactor)
	assert.Equal(t, 50, cfg.MinWindow)

	p := cfg.Params()
	assert.Equal(t, cfg.MaxTokensMerged, p.SinglePassOutputTokens)
	assert.Equal(t, cfg.MaxTokensPartial, p.PartialOutputTokens)
	assert.Equal(t, cfg.TemperatureNotes, p.NotesTemperature)
}

func TestLoad_YAMLOverlayEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outliner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
context_size: 32768
context_factor: 0.5
llm_provider: gemini
job_ttl: 15m
pdf_fallback_pdftotext: false
port: "9000"
`), 0o644))

	t.Setenv("OUTLINER_CONFIG", path)
	t.Setenv("PORT", "7000")
	t.Setenv("CONTEXT_SIZE", "")
	t.Setenv("CONTEXT_FACTOR", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("JOB_TTL", "")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 32768, cfg.ContextSize)
	assert.Equal(t, 0.5, cfg.ContextFactor)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 15*time.Minute, cfg.JobTTL)
	assert.False(t, cfg.PDFFallbackPdftotext)
	assert.Equal(t, "7000", cfg.Port, "environment should win over file")
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("OUTLINER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("context_size: [1, 2"), 0o644))
	t.Setenv("OUTLINER_CONFIG", path)
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"anthropic ok", func(c *Config) { c.Provider = "anthropic"; c.AnthropicAPIKey = "k"; c.Tokenizer = "tiktoken" }, false},
		{"anthropic missing key", func(c *Config) { c.Provider = "anthropic"; c.AnthropicAPIKey = "" }, true},
		{"gemini ok", func(c *Config) { c.Provider = "gemini"; c.GeminiAPIKey = "g"; c.Tokenizer = "gemini" }, false},
		{"gemini tokenizer without key", func(c *Config) { c.AnthropicAPIKey = "k"; c.Tokenizer = "gemini"; c.GeminiAPIKey = "" }, true},
		{"unknown provider", func(c *Config) { c.Provider = "llamacpp" }, true},
		{"unknown tokenizer", func(c *Config) { c.AnthropicAPIKey = "k"; c.Tokenizer = "bytes" }, true},
		{"pathstore without key", func(c *Config) { c.AnthropicAPIKey = "k"; c.PathstoreURL = "http://ps"; c.PathstoreAPIKey = "" }, true},
		{"bad context factor", func(c *Config) { c.AnthropicAPIKey = "k"; c.ContextFactor = 1.5 }, true},
		{"zero context", func(c *Config) { c.AnthropicAPIKey = "k"; c.ContextSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Provider:         "anthropic",
				Tokenizer:        "tiktoken",
				OutputDir:        "out",
				ContextSize:      8192,
				ContextFactor:    0.7,
				MaxTokensPartial: 1024,
				MaxTokensMerged:  2048,
				MaxTokensSection: 1024,
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	} {
		assert.Equal(t, want, Config{LogLevel: in}.Level(), in)
	}
}
