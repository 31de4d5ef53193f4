// Package main is the entry point for the outliner Lambda function.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/dgallion1/outliner/internal/config"
	"github.com/dgallion1/outliner/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := cfg.Logger(os.Stdout)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	h, closeLLM, err := cfg.OpenHandle(context.Background(), log)
	if err != nil {
		log.Error("init llm", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	hd := &handler{orch: pipeline.NewOrchestrator(h, cfg.Params(), log), log: log}
	lambda.Start(func(ctx context.Context, event json.RawMessage) (any, error) {
		if isWarmup(event) {
			return warmupResponse{Status: "warm"}, nil
		}
		var req Request
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, err
		}
		return hd.Handle(ctx, req), nil
	})
}
