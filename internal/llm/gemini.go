package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient generates text and counts tokens through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) Model() string { return g.model }

func (g *GeminiClient) Generate(ctx context.Context, req Request) (Result, error) {
	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxOutputTokens),
		StopSequences:   req.StopSequences,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		if transientGeminiError(err) {
			return Result{}, &RetryableError{StatusCode: 429, Message: err.Error()}
		}
		return Result{}, fmt.Errorf("generate content: %w", err)
	}

	res := Result{FinishReason: "unknown"}
	if resp.UsageMetadata != nil {
		res.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		res.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return res, nil
	}

	cand := resp.Candidates[0]
	res.FinishReason = geminiFinish(cand.FinishReason)
	if cand.Content != nil {
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		res.Text = strings.TrimSpace(sb.String())
	}
	return res, nil
}

// CountTokens asks the API for the exact prompt size. Each call is a network
// round trip, so chunking with this tokenizer is slow on long inputs.
func (g *GeminiClient) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := g.client.Models.CountTokens(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return int(resp.TotalTokens), nil
}

func geminiFinish(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return FinishLength
	case genai.FinishReasonStop:
		return FinishStop
	case "":
		return "unknown"
	default:
		return strings.ToLower(string(reason))
	}
}

func transientGeminiError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "quota")
}
