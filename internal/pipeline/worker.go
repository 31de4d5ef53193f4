package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/store"
)

// Worker processes a single outline or notes job.
type Worker struct {
	orch       *Orchestrator
	store      store.Store
	log        *slog.Logger
	parserOpts parser.Options
}

func NewWorker(orch *Orchestrator, st store.Store, log *slog.Logger, opts parser.Options) *Worker {
	return &Worker{orch: orch, store: st, log: log, parserOpts: opts}
}

// Process extracts the job's text, builds or reuses an outline, stores it
// and, for notes jobs, elaborates and stores the study guide.
func (w *Worker) Process(ctx context.Context, job *Job) {
	defer job.release()
	log := w.log.With("job_id", job.ID, "kind", job.Kind, "filename", job.Filename)

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	doc, err := w.extract(job)
	if err != nil {
		w.fail(log, job, "extracting", err)
		return
	}
	job.SetContentHash(ContentHashHex([]byte(doc.Text)))
	title := job.Title
	if title == "" {
		title = doc.Title
	}
	base := store.BaseName(job.Filename)
	log.Info("text extracted", "title", title, "words", len(doc.Words()))

	// Phase 2: Outline, unless one was supplied.
	var result JobResult
	outlineText := strings.TrimSpace(job.Outline())
	if outlineText == "" {
		job.SetStatus(StatusOutlining, string(StageInit))
		orch := w.orch.WithProgress(w.phase(job), job.SetChunkProgress, nil)
		res, err := orch.BuildOutline(ctx, doc.Text)
		if err != nil {
			w.fail(log, job, "outlining", err)
			return
		}
		outlineText = res.Text
		result.Mode = res.Mode
		result.Merged = res.Merged

		job.SetStatus(StatusStoring, "storing outline")
		name := store.OutlineName(base)
		if err := w.store.Put(ctx, name, outlineText+"\n"); err != nil {
			w.fail(log, job, "storing outline", err)
			return
		}
		result.OutlineName = name
		job.SetResult(result)
		log.Info("outline stored", "name", name, "mode", res.Mode, "chunks", res.Chunks, "merged", res.Merged)
	} else {
		log.Info("using supplied outline", "bytes", len(outlineText))
	}

	if job.Kind != KindNotes {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 3: Notes
	job.SetStatus(StatusNotes, string(StageSections))
	orch := w.orch.WithProgress(w.phase(job), nil, job.SetSectionProgress)
	notes, err := orch.Elaborate(ctx, title, outlineText, doc.Text)
	if err != nil {
		w.failNotes(log, job, result, err)
		return
	}
	for _, s := range notes.Skipped {
		job.AddError(fmt.Sprintf("section %q skipped", s))
	}

	job.SetStatus(StatusStoring, "storing notes")
	name := store.NotesName(base)
	if err := w.store.Put(ctx, name, notes.Markdown); err != nil {
		w.failNotes(log, job, result, err)
		return
	}
	result.NotesName = name
	job.SetResult(result)
	log.Info("notes stored", "name", name, "sections", notes.Sections, "elaborated", notes.Elaborated)
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) extract(job *Job) (*parser.Document, error) {
	p, err := parser.ForFileWithOptions(job.Filename, w.parserOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrValidation, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: no extractable text", ErrValidation)
	}
	return doc, nil
}

func (w *Worker) phase(job *Job) func(Stage) {
	return func(s Stage) { job.SetPhase(string(s)) }
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("job failed", "phase", phase, "code", Classify(err), "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}

// failNotes marks a job partial when its outline was stored, failed otherwise.
func (w *Worker) failNotes(log *slog.Logger, job *Job, result JobResult, err error) {
	if result.OutlineName == "" {
		w.fail(log, job, "notes", err)
		return
	}
	log.Warn("notes failed, outline kept", "code", Classify(err), "error", err)
	job.AddError(fmt.Sprintf("notes: %s", err))
	job.SetStatus(StatusPartial, "notes")
}
