package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/outliner/internal/api"
	"github.com/dgallion1/outliner/internal/config"
	"github.com/dgallion1/outliner/internal/pipeline"
	"github.com/dgallion1/outliner/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("load configuration", "error", err)
		os.Exit(1)
	}
	log := cfg.Logger(os.Stdout)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		log.Warn("OUTLINER_API_KEY is empty, /api routes are unauthenticated")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	h, closeLLM, err := cfg.OpenHandle(ctx, log)
	if err != nil {
		log.Error("init llm", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	st, closeStore, err := cfg.OpenStore()
	if err != nil {
		log.Error("init store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(h, cfg.Params(), log)
	worker := pipeline.NewWorker(orch, st, log, cfg.ParserOptions())
	queue := pipeline.NewQueue(worker, pipeline.QueueConfig{
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, log)
	queue.Start(ctx)

	if cfg.WatchDir != "" {
		w, err := watcher.New(cfg.WatchDir, queue, log, watcher.Options{
			Notes:        cfg.WatchNotes,
			MaxFileBytes: cfg.MaxUploadBytes,
		})
		if err != nil {
			log.Error("init watcher", "error", err)
			os.Exit(1)
		}
		defer w.Close()
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("watcher stopped", "error", err)
			}
		}()
	}

	// Initialize HTTP server.
	srv := api.NewServer(queue, st, h, log, api.Options{
		APIKey:         cfg.APIKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
		queue.Stop()
	}()

	log.Info("starting outliner",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"model", h.Model(),
		"tokenizer", cfg.Tokenizer,
		"context_size", cfg.ContextSize,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
