// Package export renders study notes into office formats.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 12
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	bulletRe  = regexp.MustCompile(`^[-*+]\s+(.+)$`)
)

// NotesDocx writes markdown notes to path as a Word document. Headings
// become bold runs sized by level, bullets get a bullet glyph and **bold**
// spans stay bold. Other Markdown syntax is dropped.
func NotesDocx(markdown, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			p := doc.AddParagraph("")
			p.AddText(cleanInline(m[2])).Font(fontName).Size(headingSize(len(m[1]))).Bold(true)
			continue
		}
		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			addRichText(doc.AddParagraph(""), "• "+m[1])
			continue
		}
		addRichText(doc.AddParagraph(""), trimmed)
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 18
	case 2:
		return 15
	case 3:
		return 13
	}
	return fontSize
}

func addRichText(p *docx.Paragraph, text string) {
	parts := boldRe.Split(text, -1)
	matches := boldRe.FindAllStringSubmatch(text, -1)
	for i, part := range parts {
		if part != "" {
			p.AddText(cleanInline(part)).Font(fontName).Size(fontSize)
		}
		if i < len(matches) {
			p.AddText(cleanInline(matches[i][1])).Font(fontName).Size(fontSize).Bold(true)
		}
	}
}

func cleanInline(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
