// Package chunker splits a word sequence into the largest chunks whose
// tokenized size fits a budget, with an optional word overlap between
// neighbouring chunks.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/outliner/internal/llm"
)

var (
	ErrInvalidBudget = errors.New("chunker: budget must be positive")
	ErrNoTokenizer   = errors.New("chunker: tokenizer is required")
)

// Config controls chunking behavior.
type Config struct {
	Budget             int // Maximum tokens per chunk.
	Overlap            int // Words shared between consecutive chunks.
	OverestimateFactor int // Initial window is Budget*OverestimateFactor words.
	MinWindow          int // Window floor is Overlap+MinWindow words.
}

// DefaultConfig returns the window defaults. Budget must still be set.
func DefaultConfig() Config {
	return Config{
		OverestimateFactor: 4,
		MinWindow:          50,
	}
}

// Chunk is a contiguous slice of the input. End is exclusive.
type Chunk struct {
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Tokens int    `json:"tokens"`
}

// Words returns the number of words in the chunk.
func (c Chunk) Words() int { return c.End - c.Start }

// Result holds the emitted chunks and the indexes of words that could not be
// placed in any chunk because they alone exceed the budget.
type Result struct {
	Chunks  []Chunk
	Skipped []int
}

// SplitText splits text on whitespace and chunks the resulting words.
func SplitText(ctx context.Context, text string, cfg Config, tok llm.Tokenizer, log *slog.Logger) (Result, error) {
	return Split(ctx, strings.Fields(text), cfg, tok, log)
}

// Split chunks words so that every emitted chunk measures at most cfg.Budget
// tokens. Candidates shrink one trailing word at a time, so the first
// candidate that fits is the largest one.
func Split(ctx context.Context, words []string, cfg Config, tok llm.Tokenizer, log *slog.Logger) (Result, error) {
	if cfg.Budget <= 0 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidBudget, cfg.Budget)
	}
	if tok == nil {
		return Result{}, ErrNoTokenizer
	}
	if cfg.OverestimateFactor <= 0 {
		cfg.OverestimateFactor = 4
	}
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = 50
	}
	if cfg.Overlap < 0 {
		log.Warn("negative overlap clamped to zero", "overlap", cfg.Overlap)
		cfg.Overlap = 0
	}

	window := max(cfg.Budget*cfg.OverestimateFactor, cfg.Overlap+cfg.MinWindow)

	var res Result
	pos := 0
	for pos < len(words) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := min(len(words), pos+window)
		size, tokens, err := largestFit(ctx, words[pos:end], cfg.Budget, tok, log)
		if err != nil {
			return res, err
		}

		if size == 0 {
			log.Warn("word exceeds budget, skipping",
				"index", pos,
				"word", truncateWord(words[pos]),
				"budget", cfg.Budget,
			)
			res.Skipped = append(res.Skipped, pos)
			pos++
			continue
		}

		res.Chunks = append(res.Chunks, Chunk{
			Text:   strings.Join(words[pos:pos+size], " "),
			Start:  pos,
			End:    pos + size,
			Tokens: tokens,
		})
		if pos+size >= len(words) {
			break
		}
		pos += max(1, size-cfg.Overlap)
	}

	log.Debug("chunking complete",
		"words", len(words),
		"chunks", len(res.Chunks),
		"skipped", len(res.Skipped),
		"budget", cfg.Budget,
		"overlap", cfg.Overlap,
	)
	return res, nil
}

// largestFit returns the longest prefix of cand (in words) whose token count
// is within budget, or zero when not even the first word fits. Tokenizer
// failures are treated as "too large" and shrink the candidate further.
func largestFit(ctx context.Context, cand []string, budget int, tok llm.Tokenizer, log *slog.Logger) (int, int, error) {
	joined := strings.Join(cand, " ")
	ends := make([]int, len(cand))
	off := 0
	for i, w := range cand {
		off += len(w)
		ends[i] = off
		off++
	}

	prev := -1
	anomaly := false
	for size := len(cand); size >= 1; size-- {
		n, err := tok.CountTokens(ctx, joined[:ends[size-1]])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, 0, ctxErr
			}
			log.Warn("tokenizer failed on candidate, shrinking", "words", size, "error", err)
			continue
		}
		if prev >= 0 && n > prev && !anomaly {
			log.Warn("token count increased as candidate shrank",
				"words", size,
				"tokens", n,
				"previous_tokens", prev,
			)
			anomaly = true
		}
		prev = n
		if n <= budget {
			return size, n, nil
		}
	}
	return 0, 0, nil
}

func truncateWord(w string) string {
	r := []rune(w)
	if len(r) <= 40 {
		return w
	}
	return string(r[:40]) + "..."
}
