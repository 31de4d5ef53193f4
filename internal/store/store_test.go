package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"lecture_outline.txt", "a.md", "x-1"} {
		assert.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`, ".hidden", "a..b"} {
		assert.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "Lecture_3", BaseName("/uploads/Lecture 3.pdf"))
	assert.Equal(t, "archive_tar", BaseName("archive.tar.gz"))
	assert.Equal(t, "my_file", BaseName("my..file.pdf"))
	assert.Equal(t, "document", BaseName("...txt"))
	assert.Equal(t, "lecture_outline.txt", OutlineName("lecture"))
	assert.Equal(t, "lecture_notes.md", NotesName("lecture"))
}

func TestFileStore_PutGetListDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "b_outline.txt", "1. B"))
	require.NoError(t, s.Put(ctx, "a_outline.txt", "1. A"))
	require.NoError(t, s.Put(ctx, "a_outline.txt", "1. A v2"))

	got, err := s.Get(ctx, "a_outline.txt")
	require.NoError(t, err)
	assert.Equal(t, "1. A v2", got)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a_outline.txt", entries[0].Name)
	assert.Equal(t, int64(len("1. A v2")), entries[0].Size)

	// No temp files left behind.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range files {
		assert.False(t, strings.HasSuffix(f.Name(), ".tmp"), f.Name())
	}

	require.NoError(t, s.Delete(ctx, "b_outline.txt"))
	_, err = s.Get(ctx, "b_outline.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "b_outline.txt"), ErrNotFound)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "out"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Put(context.Background(), "../escape.txt", "x"), ErrInvalidName)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Get(context.Background(), "../out/x")
	assert.ErrorIs(t, err, ErrInvalidName)
}

// fakePathstore is an in-memory stand-in for the pathstore KV API.
type fakePathstore struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
}

func (f *fakePathstore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer k" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var nodes []map[string]any
		for k, v := range f.nodes {
			if strings.HasPrefix(k, prefix) {
				nodes = append(nodes, map[string]any{"key_path": k, "value": v})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.nodes[key] = body.Value
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case r.Method == http.MethodDelete:
		if _, ok := f.nodes[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.nodes, key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestPathstoreStore_RoundTrip(t *testing.T) {
	fake := &fakePathstore{nodes: map[string]json.RawMessage{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewPathstoreStore(srv.URL+"/", "k", "")
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "lecture_notes.md", "# Study Guide"))
	require.NoError(t, s.Put(ctx, "lecture_outline.txt", "1. A"))

	fake.mu.Lock()
	_, ok := fake.nodes["outliner/artifacts/lecture_notes_md"]
	fake.mu.Unlock()
	assert.True(t, ok, "expected dots to be replaced in key")

	got, err := s.Get(ctx, "lecture_outline.txt")
	require.NoError(t, err)
	assert.Equal(t, "1. A", got)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "lecture_notes.md", entries[0].Name)
	assert.Equal(t, int64(len("# Study Guide")), entries[0].Size)

	require.NoError(t, s.Delete(ctx, "lecture_notes.md"))
	_, err = s.Get(ctx, "lecture_notes.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathstoreStore_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewPathstoreStore(srv.URL, "k", "p")
	err := s.Put(context.Background(), "x.txt", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
