package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dgallion1/outliner/internal/pipeline"
)

// Request is the Lambda event payload.
type Request struct {
	Text  string `json:"text"`
	Notes bool   `json:"notes,omitempty"`
	// Outline, when set, is used instead of generating one.
	Outline string `json:"outline,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Response carries either the generated documents or an error with its code.
type Response struct {
	Outline string `json:"outline,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Chunks  int    `json:"chunks"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type handler struct {
	orch *pipeline.Orchestrator
	log  *slog.Logger
}

func (h *handler) Handle(ctx context.Context, req Request) Response {
	if strings.TrimSpace(req.Text) == "" {
		return Response{Error: "text is required", Code: string(pipeline.CodeValidation)}
	}

	var resp Response
	outlineText := strings.TrimSpace(req.Outline)
	if outlineText == "" {
		res, err := h.orch.BuildOutline(ctx, req.Text)
		if err != nil {
			return h.fail(resp, "outline", err)
		}
		outlineText = res.Text
		resp.Mode = string(res.Mode)
		resp.Chunks = res.Chunks
	}
	resp.Outline = outlineText

	if !req.Notes {
		return resp
	}
	notes, err := h.orch.Elaborate(ctx, req.Title, outlineText, req.Text)
	if err != nil {
		return h.fail(resp, "notes", err)
	}
	resp.Notes = notes.Markdown
	return resp
}

// fail keeps whatever was produced before err.
func (h *handler) fail(resp Response, phase string, err error) Response {
	code := pipeline.Classify(err)
	h.log.Error("request failed", "phase", phase, "code", code, "error", err)
	resp.Error = phase + ": " + err.Error()
	resp.Code = string(code)
	return resp
}

const warmupSource = "warmup"

type warmupResponse struct {
	Status string `json:"status"`
}

// isWarmup reports whether event is a scheduled keep-warm ping.
func isWarmup(event json.RawMessage) bool {
	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(event, &probe); err != nil {
		return false
	}
	return probe.Source == warmupSource
}
