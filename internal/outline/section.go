package outline

import (
	"regexp"
	"strings"
)

var (
	topLevelRe = regexp.MustCompile(`^\d+\.(?:\s|$)`)
	numberRe   = regexp.MustCompile(`^\s*\d+(?:\.\d+)*\.?\s*`)
)

// Section is a top-level outline item and everything under it.
type Section struct {
	Header string   `json:"header"`
	Body   []string `json:"body,omitempty"`
}

// Text re-joins the section into outline text.
func (s Section) Text() string {
	if len(s.Body) == 0 {
		return s.Header
	}
	return s.Header + "\n" + strings.Join(s.Body, "\n")
}

// Title is the header with its numbering removed.
func (s Section) Title() string {
	return strings.TrimSpace(numberRe.ReplaceAllString(s.Header, ""))
}

// SplitSections splits an outline before every line that starts with a
// single-level number such as "2. ". Text without such lines comes back as
// one section. Blank segments are dropped.
func SplitSections(text string) []Section {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var segments [][]string
	var cur []string
	for i, line := range lines {
		if i > 0 && topLevelRe.MatchString(line) {
			segments = append(segments, cur)
			cur = nil
		}
		cur = append(cur, line)
	}
	segments = append(segments, cur)

	var sections []Section
	for _, seg := range segments {
		trimmed := strings.TrimSpace(strings.Join(seg, "\n"))
		if trimmed == "" {
			continue
		}
		parts := strings.Split(trimmed, "\n")
		sections = append(sections, Section{Header: parts[0], Body: parts[1:]})
	}
	return sections
}
