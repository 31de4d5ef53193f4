package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/outliner/internal/pipeline"
)

type Config struct {
	Port string

	// Auth for /api routes. Empty disables auth.
	APIKey string

	// LLM provider
	Provider        string // anthropic | gemini
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	// Token counting
	Tokenizer        string // tiktoken | gemini | estimate
	TiktokenEncoding string

	// Context window sizing
	ContextSize        int
	ContextFactor      float64
	MaxTokensPartial   int
	MaxTokensMerged    int
	MaxTokensSection   int
	TemperatureOutline float64
	TemperatureMerge   float64
	TemperatureNotes   float64
	OverlapWords       int
	OverestimateFactor int
	MinWindow          int

	// Queue
	MaxQueueSize int
	JobTTL       time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Output
	OutputDir       string
	PathstoreURL    string
	PathstoreAPIKey string

	// Inbox directory for the watcher. Empty disables it.
	WatchDir   string
	WatchNotes bool

	// PDF
	PDFFallbackPdftotext bool

	LogLevel string
}

// source resolves a key from the environment first, then from the YAML
// file named by OUTLINER_CONFIG.
type source struct {
	file map[string]string
}

// Load reads configuration from the environment, overlaid on the optional
// YAML file named by OUTLINER_CONFIG.
func Load() (Config, error) {
	src := source{}
	if path := os.Getenv("OUTLINER_CONFIG"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return src.load(), nil
}

func (s source) load() Config {
	cfg := Config{
		Port:   s.strVal("PORT", "8090"),
		APIKey: s.strVal("OUTLINER_API_KEY", ""),

		Provider:        strings.ToLower(s.strVal("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey: s.strVal("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  s.strVal("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GeminiAPIKey:    s.strVal("GEMINI_API_KEY", ""),
		GeminiModel:     s.strVal("GEMINI_MODEL", "gemini-2.5-flash"),

		Tokenizer:        strings.ToLower(s.strVal("TOKENIZER", "tiktoken")),
		TiktokenEncoding: s.strVal("TIKTOKEN_ENCODING", "cl100k_base"),

		ContextSize:        s.intVal("CONTEXT_SIZE", 8192),
		ContextFactor:      s.floatVal("CONTEXT_FACTOR", 0.7),
		MaxTokensPartial:   s.intVal("MAX_TOKENS_PARTIAL", 1024),
		MaxTokensMerged:    s.intVal("MAX_TOKENS_MERGED", 2048),
		MaxTokensSection:   s.intVal("MAX_TOKENS_SECTION", 1024),
		TemperatureOutline: s.floatVal("TEMPERATURE_OUTLINE", 0.3),
		TemperatureMerge:   s.floatVal("TEMPERATURE_MERGE", 0.2),
		TemperatureNotes:   s.floatVal("TEMPERATURE_NOTES", 0.4),
		OverlapWords:       s.intVal("OVERLAP_WORDS", 0),
		OverestimateFactor: s.intVal("OVERESTIMATE_FACTOR", 4),
		MinWindow:          s.intVal("MIN_WINDOW", 50),

		MaxQueueSize: s.intVal("MAX_QUEUE_SIZE", 100),
		JobTTL:       s.durationVal("JOB_TTL", 1*time.Hour),

		MaxUploadBytes: s.int64Val("MAX_UPLOAD_BYTES", 52428800), // 50MB

		OutputDir:       s.strVal("OUTPUT_DIR", "output"),
		PathstoreURL:    s.strVal("PATHSTORE_URL", ""),
		PathstoreAPIKey: s.strVal("PATHSTORE_API_KEY", ""),

		WatchDir:   s.strVal("WATCH_DIR", ""),
		WatchNotes: s.boolVal("WATCH_NOTES", false),

		PDFFallbackPdftotext: s.boolVal("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: strings.ToLower(s.strVal("LOG_LEVEL", "info")),
	}

	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.OverestimateFactor <= 0 {
		cfg.OverestimateFactor = 4
	}
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = 50
	}

	return cfg
}

// Validate checks provider credentials and sizes. Model parameters are
// checked again by pipeline.Params.Validate when a run starts.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider anthropic")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider gemini")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be anthropic or gemini, got %q", c.Provider)
	}

	switch c.Tokenizer {
	case "tiktoken", "estimate":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for tokenizer gemini")
		}
	default:
		return fmt.Errorf("TOKENIZER must be tiktoken, gemini or estimate, got %q", c.Tokenizer)
	}

	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	if c.PathstoreURL == "" && c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR or PATHSTORE_URL is required")
	}

	if err := c.Params().Validate(); err != nil {
		return err
	}
	return nil
}

// Params projects the generation knobs into pipeline parameters.
func (c Config) Params() pipeline.Params {
	return pipeline.Params{
		ContextSize:            c.ContextSize,
		ContextFactor:          c.ContextFactor,
		SinglePassOutputTokens: c.MaxTokensMerged,
		PartialOutputTokens:    c.MaxTokensPartial,
		MergeOutputTokens:      c.MaxTokensMerged,
		SectionOutputTokens:    c.MaxTokensSection,
		OutlineTemperature:     c.TemperatureOutline,
		MergeTemperature:       c.TemperatureMerge,
		NotesTemperature:       c.TemperatureNotes,
		OverlapWords:           c.OverlapWords,
		OverestimateFactor:     c.OverestimateFactor,
		MinWindow:              c.MinWindow,
	}
}

// Level maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger builds the JSON logger used by every binary.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func (s source) lookup(key string) (string, bool) {
	if v := os.Getenv(key); v != "" {
		return v, true
	}
	v, ok := s.file[key]
	return v, ok && v != ""
}

func (s source) strVal(key, fallback string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return fallback
}

func (s source) intVal(key string, fallback int) int {
	if v, ok := s.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (s source) int64Val(key string, fallback int64) int64 {
	if v, ok := s.lookup(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func (s source) floatVal(key string, fallback float64) float64 {
	if v, ok := s.lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func (s source) boolVal(key string, fallback bool) bool {
	if v, ok := s.lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (s source) durationVal(key string, fallback time.Duration) time.Duration {
	if v, ok := s.lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
