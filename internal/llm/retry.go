package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retrying wraps a Generator and retries RetryableError failures with
// exponential backoff.
type Retrying struct {
	next    Generator
	log     *slog.Logger
	backoff func(int) time.Duration
}

func NewRetrying(next Generator, log *slog.Logger) *Retrying {
	return &Retrying{next: next, log: log, backoff: Backoff}
}

func (r *Retrying) Generate(ctx context.Context, req Request) (Result, error) {
	var (
		res     Result
		lastErr error
	)
	for attempt := range MaxRetries {
		res, lastErr = r.next.Generate(ctx, req)
		if lastErr == nil || !IsRetryable(lastErr) {
			return res, lastErr
		}
		r.log.Warn("retryable generation error", "task", req.Task, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return res, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
