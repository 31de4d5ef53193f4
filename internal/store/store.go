// Package store persists finished outlines and study notes.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("store: not found")
	ErrInvalidName = errors.New("store: invalid name")
)

// Entry describes one stored artifact.
type Entry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store writes whole artifacts at once; readers never see partial content.
type Store interface {
	Put(ctx context.Context, name, content string) error
	Get(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects empty names, path separators and traversal.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: hidden name %q", ErrInvalidName, name)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// BaseName derives an artifact base name from an input filename.
func BaseName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_-")
	if base == "" {
		return "document"
	}
	return base
}

// OutlineName is the artifact name for a document's outline.
func OutlineName(base string) string { return base + "_outline.txt" }

// NotesName is the artifact name for a document's study notes.
func NotesName(base string) string { return base + "_notes.md" }
