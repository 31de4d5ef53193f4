package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_GenerateMapsRequestAndResponse(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [{"type": "text", "text": " 1. Intro\n1.1. Scope "}],
			"stop_reason": "max_tokens",
			"usage": {"input_tokens": 40, "output_tokens": 7}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", "claude-test").WithURL(srv.URL)
	res, err := c.Generate(context.Background(), Request{
		Prompt:          "outline this",
		MaxOutputTokens: 1024,
		Temperature:     0.2,
		StopSequences:   []string{"\n---", "   "},
	})
	require.NoError(t, err)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 1024, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	assert.Equal(t, []string{"\n---"}, got.StopSequences)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "outline this", got.Messages[0].Content)

	assert.Equal(t, "1. Intro\n1.1. Scope", res.Text)
	assert.Equal(t, FinishLength, res.FinishReason)
	assert.Equal(t, 40, res.PromptTokens)
	assert.Equal(t, 7, res.OutputTokens)
}

func TestAnthropicClient_RetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m").WithURL(srv.URL)
	_, err := c.Generate(context.Background(), Request{Prompt: "p", MaxOutputTokens: 1})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestAnthropicClient_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m").WithURL(srv.URL)
	_, err := c.Generate(context.Background(), Request{Prompt: "p", MaxOutputTokens: 1})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestAnthropicFinish(t *testing.T) {
	assert.Equal(t, FinishStop, anthropicFinish("end_turn"))
	assert.Equal(t, FinishStop, anthropicFinish("stop_sequence"))
	assert.Equal(t, FinishLength, anthropicFinish("max_tokens"))
	assert.Equal(t, "refusal", anthropicFinish("refusal"))
}

func TestRetrying_RetriesTransientErrors(t *testing.T) {
	calls := 0
	next := GeneratorFunc(func(context.Context, Request) (Result, error) {
		calls++
		if calls < 3 {
			return Result{}, &RetryableError{StatusCode: 429}
		}
		return Result{Text: "done"}, nil
	})
	r := NewRetrying(next, discardLogger())
	r.backoff = func(int) time.Duration { return 0 }

	res, err := r.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, 3, calls)
}

func TestRetrying_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	next := GeneratorFunc(func(context.Context, Request) (Result, error) {
		calls++
		return Result{}, &RetryableError{StatusCode: 500}
	})
	r := NewRetrying(next, discardLogger())
	r.backoff = func(int) time.Duration { return 0 }

	_, err := r.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, MaxRetries, calls)
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 45*time.Second)
	}
}
