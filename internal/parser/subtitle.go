package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// SubtitleParser reads SRT and WebVTT captions as a transcript. Cue
// identifiers, timings, headers and markup are dropped; a line repeated by
// consecutive cues is kept once.
type SubtitleParser struct{}

var (
	cueTimingRe = regexp.MustCompile(`^\s*(?:\d{1,2}:)?\d{2}:\d{2}[,.]\d{3}\s+-->\s+`)
	cueTagRe    = regexp.MustCompile(`<[^>]*>|\{\\[^}]*\}`)
)

func (p *SubtitleParser) Parse(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines, block []string
	var last string
	skip := false
	first := true

	flush := func() {
		for _, text := range block {
			if text != last {
				lines = append(lines, text)
				last = text
			}
		}
		block = block[:0]
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
			skip = strings.HasPrefix(line, "WEBVTT")
		}
		switch {
		case line == "":
			if !skip {
				flush()
			}
			block = block[:0]
			skip = false
			continue
		case skip:
			continue
		case len(block) == 0 && (strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION"):
			skip = true
			continue
		case cueTimingRe.MatchString(line):
			// Anything before the timing line is a cue identifier.
			block = block[:0]
			continue
		}
		if text := strings.TrimSpace(cueTagRe.ReplaceAllString(line, "")); text != "" {
			block = append(block, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !skip {
		flush()
	}

	return &Document{Title: titleFromFilename(filename), Text: strings.Join(lines, "\n")}, nil
}
