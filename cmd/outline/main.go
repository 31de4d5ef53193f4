// Command outline builds outlines, and optionally study notes, for local
// documents.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/outliner/internal/config"
	"github.com/dgallion1/outliner/internal/export"
	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/pipeline"
	"github.com/dgallion1/outliner/internal/store"
)

type options struct {
	notes   bool
	outline string
	out     string
	title   string
	docx    bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.notes, "notes", false, "also write a study guide for each input")
	flag.StringVar(&opts.outline, "outline", "", "existing outline file to use instead of generating one (single input only)")
	flag.StringVar(&opts.out, "out", "", "output directory (overrides OUTPUT_DIR)")
	flag.StringVar(&opts.title, "title", "", "study guide title (defaults to the document title)")
	flag.BoolVar(&opts.docx, "docx", false, "with -notes, also write <name>_notes.docx to the output directory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: outline [-notes [-docx]] [-outline existing.txt] [-out dir] [-title t] file...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.out != "" {
		cfg.OutputDir = opts.out
		cfg.PathstoreURL = ""
	}
	log := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, flag.Args(), log); err != nil {
		log.Error("outline failed", "code", pipeline.Classify(err), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, files []string, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	if opts.outline != "" && len(files) > 1 {
		return fmt.Errorf("%w: -outline takes a single input file", pipeline.ErrValidation)
	}

	var supplied string
	if opts.outline != "" {
		data, err := os.ReadFile(opts.outline)
		if err != nil {
			return fmt.Errorf("%w: read outline: %w", pipeline.ErrValidation, err)
		}
		supplied = strings.TrimSpace(string(data))
	}

	h, closeLLM, err := cfg.OpenHandle(ctx, log)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	defer closeLLM()

	st, closeStore, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	defer closeStore()

	docs, err := timed(log, "extract", func() ([]*parser.Document, error) {
		return extractAll(ctx, files, cfg.ParserOptions())
	})
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(h, cfg.Params(), log).WithProgress(
		func(s pipeline.Stage) { log.Debug("stage", "stage", s) },
		func(done, total int) { log.Info("chunk outlined", "done", done, "total", total) },
		func(done, total int) { log.Info("section elaborated", "done", done, "total", total) },
	)

	var failed int
	for i, doc := range docs {
		if err := process(ctx, orch, st, cfg.OutputDir, files[i], doc, supplied, opts, log); err != nil {
			log.Error("document failed", "file", files[i], "code", pipeline.Classify(err), "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

// extractAll parses every input concurrently. Results keep input order.
func extractAll(ctx context.Context, files []string, popts parser.Options) ([]*parser.Document, error) {
	docs := make([]*parser.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := parser.ForFileWithOptions(path, popts)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", pipeline.ErrValidation, path, err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%w: %w", pipeline.ErrValidation, err)
			}
			doc, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
			if err != nil {
				return fmt.Errorf("%w: %s: %w", pipeline.ErrValidation, path, err)
			}
			if strings.TrimSpace(doc.Text) == "" {
				return fmt.Errorf("%w: %s: no extractable text", pipeline.ErrValidation, path)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func process(ctx context.Context, orch *pipeline.Orchestrator, st store.Store, outDir, path string, doc *parser.Document, supplied string, opts options, log *slog.Logger) error {
	base := store.BaseName(filepath.Base(path))
	log = log.With("file", path)

	outlineText := supplied
	if outlineText == "" {
		res, err := timed(log, "outline", func() (*pipeline.OutlineResult, error) {
			return orch.BuildOutline(ctx, doc.Text)
		})
		if err != nil {
			return err
		}
		outlineText = res.Text

		name := store.OutlineName(base)
		if err := st.Put(ctx, name, outlineText+"\n"); err != nil {
			return fmt.Errorf("store outline: %w", err)
		}
		log.Info("outline written", "name", name, "mode", res.Mode, "chunks", res.Chunks, "merged", res.Merged)
	}

	if !opts.notes {
		return nil
	}

	title := opts.title
	if title == "" {
		title = doc.Title
	}
	notes, err := timed(log, "notes", func() (*pipeline.NotesResult, error) {
		return orch.Elaborate(ctx, title, outlineText, doc.Text)
	})
	if err != nil {
		return err
	}
	for _, s := range notes.Skipped {
		log.Warn("section skipped", "section", s)
	}

	name := store.NotesName(base)
	if err := st.Put(ctx, name, notes.Markdown); err != nil {
		return fmt.Errorf("store notes: %w", err)
	}
	log.Info("notes written", "name", name, "sections", notes.Sections, "elaborated", notes.Elaborated)

	if opts.docx {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		docxPath := filepath.Join(outDir, base+"_notes.docx")
		if err := export.NotesDocx(notes.Markdown, docxPath); err != nil {
			return fmt.Errorf("export docx: %w", err)
		}
		log.Info("docx written", "path", docxPath)
	}
	return nil
}

// timed runs fn and logs how long the phase took.
func timed[T any](log *slog.Logger, phase string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	elapsed := time.Since(start)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("phase failed", "phase", phase, "duration_ms", elapsed.Milliseconds())
	} else {
		log.Info("phase done", "phase", phase, "duration_ms", elapsed.Milliseconds())
	}
	return v, err
}
