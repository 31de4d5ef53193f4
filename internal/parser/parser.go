// Package parser turns uploaded documents into plain transcript text.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for file extensions with no parser.
var ErrUnsupported = errors.New("unsupported file extension")

// Document is the extracted text of one input file.
type Document struct {
	Title string
	Text  string
}

// Words returns the whitespace-separated words of the document text.
func (d *Document) Words() []string {
	return strings.Fields(d.Text)
}

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".srt":      true,
	".vtt":      true,
}

// Options tunes parsers that shell out or have fallbacks.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return ForFileWithOptions(filename, Options{})
}

func ForFileWithOptions(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".srt", ".vtt":
		return &SubtitleParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// blocks accumulates headings and paragraphs, one block per entry,
// joined by blank lines.
type blocks struct {
	parts []string
}

func (b *blocks) add(s string) {
	s = strings.TrimSpace(s)
	if s != "" {
		b.parts = append(b.parts, s)
	}
}

func (b *blocks) String() string {
	return strings.Join(b.parts, "\n\n")
}
