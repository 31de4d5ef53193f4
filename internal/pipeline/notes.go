package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/outliner/internal/llm"
	"github.com/dgallion1/outliner/internal/outline"
	"github.com/dgallion1/outliner/internal/prompt"
)

// NotesResult is the assembled study guide.
type NotesResult struct {
	Markdown   string   `json:"markdown"`
	Sections   int      `json:"sections"`
	Elaborated int      `json:"elaborated"`
	Skipped    []string `json:"skipped,omitempty"`
}

// StudyGuideHeading is the first line of every notes document.
func StudyGuideHeading(title string) string {
	if title = strings.TrimSpace(title); title == "" {
		return "# Study Guide"
	}
	return "# Study Guide: " + title
}

// Elaborate writes notes for every top-level section of outlineText, using
// the whole transcript as reference. Sections that fail or come back empty
// are skipped; the run fails only when none succeed.
func (o *Orchestrator) Elaborate(ctx context.Context, title, outlineText, transcript string) (*NotesResult, error) {
	r := o.newRun()

	if err := o.ready(); err != nil {
		return nil, r.fail(err)
	}
	if strings.TrimSpace(outlineText) == "" {
		return nil, r.fail(fmt.Errorf("%w: empty outline", ErrValidation))
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, r.fail(fmt.Errorf("%w: empty transcript", ErrValidation))
	}

	r.enter(StageSections)
	tree := outline.Parse(outlineText)
	if len(tree.Roots()) == 0 {
		o.log.Warn("outline has no numbered items, elaborating it as one section")
	}
	sections := outline.SplitSections(outlineText)
	total := len(sections)
	o.log.Info("elaborating sections", "sections", total, "outline_items", tree.Len())

	var notes, skipped []string
	for i, s := range sections {
		text, err := o.section(ctx, s, transcript, i+1, total)
		if o.onSection != nil {
			o.onSection(i+1, total)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, r.fail(ctxErr)
			}
			o.log.Warn("section notes failed, skipping", "section", i+1, "header", s.Header, "error", err)
			skipped = append(skipped, s.Header)
			continue
		}
		if text == "" {
			o.log.Warn("no notes generated for section", "section", i+1, "header", s.Header)
			skipped = append(skipped, s.Header)
			continue
		}
		notes = append(notes, text)
	}

	if len(notes) == 0 {
		return nil, r.fail(ErrNoContent)
	}

	md := StudyGuideHeading(title) + "\n\n" + strings.Join(notes, "\n\n") + "\n"
	r.enter(StageDone)
	return &NotesResult{Markdown: md, Sections: total, Elaborated: len(notes), Skipped: skipped}, nil
}

func (o *Orchestrator) section(ctx context.Context, s outline.Section, transcript string, index, total int) (string, error) {
	label := shortLabel(s.Title(), 50)
	out, err := o.h.Generate(ctx, llm.Request{
		Task:            fmt.Sprintf("notes section %d/%d (%s)", index, total, label),
		Prompt:          prompt.Section(s.Text(), transcript),
		MaxOutputTokens: o.params.SectionOutputTokens,
		Temperature:     o.params.NotesTemperature,
		StopSequences:   prompt.SectionStopSequences,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

// shortLabel cuts s to at most n runes.
func shortLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
