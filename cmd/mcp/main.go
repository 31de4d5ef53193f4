// Command mcp serves the outliner tools over MCP on stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/outliner/internal/config"
	"github.com/dgallion1/outliner/internal/mcptools"
	"github.com/dgallion1/outliner/internal/pipeline"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "outliner-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	log := cfg.Logger(os.Stderr)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, closeLLM, err := cfg.OpenHandle(ctx, log)
	if err != nil {
		return err
	}
	defer closeLLM()

	svc := mcptools.NewService(pipeline.NewOrchestrator(h, cfg.Params(), log))
	log.Info("serving mcp on stdio", "model", h.Model())
	return mcptools.NewServer(svc).Run(ctx, &mcp.StdioTransport{})
}
