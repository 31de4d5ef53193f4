package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/store"
)

func lectureGenerator() *scriptedGenerator {
	return &scriptedGenerator{respond: func(req llm.Request) (llm.Result, error) {
		if strings.HasPrefix(req.Task, "notes section") {
			return text("## " + req.Task)
		}
		return text("1. Intro\n1.1. Why\n2. Body")
	}}
}

func newTestWorker(t *testing.T, gen llm.Generator) (*Worker, *store.FileStore) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewWorker(newTestOrchestrator(gen, testParams()), st, quietLog, parser.Options{}), st
}

func TestWorker_OutlineJob(t *testing.T) {
	w, st := newTestWorker(t, lectureGenerator())
	job := NewJob(KindOutline, "Lecture 1.txt", "", []byte(words(40)))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, snap.Progress.Errors)
	assert.Equal(t, "Lecture_1_outline.txt", snap.Result.OutlineName)
	assert.Equal(t, ModeSinglePass, snap.Result.Mode)
	assert.Empty(t, snap.Result.NotesName)
	assert.NotEmpty(t, snap.ContentHash)
	assert.Nil(t, job.FileData(), "input should be released")

	got, err := st.Get(context.Background(), "Lecture_1_outline.txt")
	require.NoError(t, err)
	assert.Equal(t, "1. Intro\n1.1. Why\n2. Body\n", got)
}

func TestWorker_NotesJobBuildsOutlineFirst(t *testing.T) {
	gen := lectureGenerator()
	w, st := newTestWorker(t, gen)
	job := NewJob(KindNotes, "bio.md", "Biology", []byte("# Cells\n\n"+words(30)))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, snap.Progress.Errors)
	assert.Equal(t, "bio_outline.txt", snap.Result.OutlineName)
	assert.Equal(t, "bio_notes.md", snap.Result.NotesName)
	assert.Equal(t, 2, snap.Progress.TotalSections)
	assert.Equal(t, 2, snap.Progress.SectionsDone)
	assert.Len(t, gen.calls("notes section"), 2)

	notes, err := st.Get(context.Background(), "bio_notes.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(notes, "# Study Guide: Biology\n\n"), notes)
}

func TestWorker_NotesJobReusesSuppliedOutline(t *testing.T) {
	gen := lectureGenerator()
	w, st := newTestWorker(t, gen)
	job := NewJob(KindNotes, "talk.srt", "", []byte("1\n00:00:01,000 --> 00:00:02,000\nhello class\n"))
	job.SetOutline("1. Greeting\n2. Farewell\n3. Questions")

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, snap.Progress.Errors)
	assert.Empty(t, gen.calls("outline"))
	assert.Empty(t, snap.Result.OutlineName)
	assert.Equal(t, "talk_notes.md", snap.Result.NotesName)

	entries, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "talk_notes.md", entries[0].Name)
}

func TestWorker_NotesFailureKeepsOutline(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req llm.Request) (llm.Result, error) {
		if strings.HasPrefix(req.Task, "notes section") {
			return llm.Result{}, errors.New("model crashed")
		}
		return text("1. Only")
	}}
	w, st := newTestWorker(t, gen)
	job := NewJob(KindNotes, "x.txt", "", []byte(words(10)))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, "x_outline.txt", snap.Result.OutlineName)
	require.NotEmpty(t, snap.Progress.Errors)
	assert.Contains(t, snap.Progress.Errors[len(snap.Progress.Errors)-1], "notes:")

	_, err := st.Get(context.Background(), "x_outline.txt")
	assert.NoError(t, err)
}

func TestWorker_FailsOnBadInput(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"unsupported", "sheet.csv", "a,b"},
		{"empty text", "blank.txt", "   \n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := lectureGenerator()
			w, _ := newTestWorker(t, gen)
			job := NewJob(KindOutline, tt.filename, "", []byte(tt.data))

			w.Process(context.Background(), job)

			snap := job.Snapshot()
			assert.Equal(t, StatusFailed, snap.Status)
			assert.Equal(t, "extracting", snap.Phase)
			assert.Len(t, snap.Progress.Errors, 1)
			assert.Zero(t, gen.total())
		})
	}
}

func TestWorker_ChunkedOutlineReportsPhases(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req llm.Request) (llm.Result, error) {
		if strings.HasPrefix(req.Task, "partial") {
			return text("1. Part")
		}
		return text("1. Merged")
	}}
	w, _ := newTestWorker(t, gen)
	job := NewJob(KindOutline, "long.txt", "", []byte(words(1500)))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, snap.Progress.Errors)
	assert.Equal(t, ModeChunked, snap.Result.Mode)
	assert.True(t, snap.Result.Merged)
	assert.Positive(t, snap.Progress.TotalChunks)
	assert.Equal(t, snap.Progress.TotalChunks, snap.Progress.ChunksProcessed)
}

func TestQueue_ProcessesSubmittedJobs(t *testing.T) {
	w, _ := newTestWorker(t, lectureGenerator())
	q := NewQueue(w, QueueConfig{MaxQueueSize: 4}, quietLog)
	q.Start(context.Background())
	defer q.Stop()

	jobs := []*Job{
		NewJob(KindOutline, "a.txt", "", []byte(words(5))),
		NewJob(KindOutline, "b.txt", "", []byte(words(5))),
	}
	for _, j := range jobs {
		require.NoError(t, q.Submit(j))
	}

	for _, j := range jobs {
		require.Eventually(t, func() bool {
			return j.Snapshot().Status == StatusCompleted
		}, 5*time.Second, 10*time.Millisecond)
		assert.Same(t, j, q.GetJob(j.ID))
	}
}

func TestQueue_FullAndClosed(t *testing.T) {
	w, _ := newTestWorker(t, lectureGenerator())
	q := NewQueue(w, QueueConfig{MaxQueueSize: 1}, quietLog)

	require.NoError(t, q.Submit(NewJob(KindOutline, "a.txt", "", nil)))
	assert.Equal(t, 1, q.QueueDepth())

	overflow := NewJob(KindOutline, "b.txt", "", []byte("x"))
	err := q.Submit(overflow)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, StatusFailed, overflow.Snapshot().Status)
	assert.NotNil(t, q.GetJob(overflow.ID))

	q.Stop()
	q.Stop()
	assert.ErrorIs(t, q.Submit(NewJob(KindOutline, "c.txt", "", nil)), ErrQueueClosed)
}
