// Package watcher turns documents dropped into an inbox directory into
// outline jobs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/pipeline"
)

// Submitter accepts jobs; *pipeline.Queue satisfies it.
type Submitter interface {
	Submit(job *pipeline.Job) error
}

type Options struct {
	// Notes makes every detected file a notes job instead of outline only.
	Notes bool
	// Settle is how long to wait after CREATE before reading the file.
	Settle       time.Duration
	MaxFileBytes int64
}

type Watcher struct {
	dir    string
	submit Submitter
	log    *slog.Logger
	opts   Options
	fs     *fsnotify.Watcher
}

func New(dir string, s Submitter, log *slog.Logger, opts Options) (*Watcher, error) {
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 50 << 20
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, submit: s, log: log, opts: opts, fs: fw}, nil
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watching inbox", "dir", w.dir, "notes", w.opts.Notes)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != fsnotify.Create || !w.wanted(ev.Name) {
				continue
			}
			// Give the writer a moment to finish.
			select {
			case <-time.After(w.opts.Settle):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := w.handle(ev.Name); err != nil {
				w.log.Error("inbox file rejected", "path", ev.Name, "error", err)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}

// wanted skips hidden files, unsupported formats and our own outputs.
func (w *Watcher) wanted(path string) bool {
	name := filepath.Base(path)
	switch {
	case strings.HasPrefix(name, "."):
		return false
	case strings.HasSuffix(name, "_outline.txt"), strings.HasSuffix(name, "_notes.md"):
		return false
	}
	return parser.IsSupportedExtension(name)
}

func (w *Watcher) handle(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(f, w.opts.MaxFileBytes+1))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > w.opts.MaxFileBytes {
		return fmt.Errorf("file exceeds max size (%d bytes)", w.opts.MaxFileBytes)
	}
	if len(data) == 0 {
		return errors.New("file is empty")
	}

	kind := pipeline.KindOutline
	if w.opts.Notes {
		kind = pipeline.KindNotes
	}
	job := pipeline.NewJob(kind, filepath.Base(path), "", data)
	if err := w.submit.Submit(job); err != nil {
		return err
	}
	w.log.Info("inbox file queued", "path", path, "job_id", job.ID, "kind", kind)
	return nil
}
