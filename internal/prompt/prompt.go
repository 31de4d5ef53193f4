// Package prompt holds the generation prompts for outlines, merges and
// section notes.
package prompt

import (
	"fmt"
	"strings"
)

const outlineRules = `Rules:
- Use hierarchical numbering only: 1., 1.1., 1.1.1., 2., and so on
- Level 1 items are the main topics, level 2 their components, level 3+ concepts, definitions, examples and questions
- Follow the order in which the material is presented
- Leave out logistics, off-topic remarks and administrative talk
- Keep each item to a short phrase, no paragraphs
- Write item text plainly, with no bold, italics or other markup
- Respond with ONLY the numbered outline, no preamble or closing remarks`

const singlePassTemplate = `You are an expert at analysing lectures and structuring academic content.
Your input is the COMPLETE transcript of a lecture.

Produce a detailed HIERARCHICAL OUTLINE of the whole lecture that preserves its logical flow.

` + outlineRules + `

--- FULL TRANSCRIPT ---
%s
--- END OF TRANSCRIPT ---

LECTURE OUTLINE (start with "1."):
`

const partialTemplate = `You are an expert at analysing lectures and structuring academic content.
Your input is a FRAGMENT of a lecture transcript (part %d of %d).

Produce a detailed HIERARCHICAL OUTLINE of THIS FRAGMENT only. Number its main topics starting from "1." and do not guess the numbering of the full lecture.

` + outlineRules + `

--- TRANSCRIPT FRAGMENT (part %d of %d) ---
%s
--- END OF FRAGMENT ---

OUTLINE OF THIS FRAGMENT (start with "1."):
`

const mergeTemplate = `You are an expert editor and information architect for academic material.
Your input is a list of PARTIAL OUTLINES produced one after another from consecutive fragments of a single lecture. Each partial outline numbers its own main topics from "1.".

Merge them into ONE MASTER OUTLINE that reads as if the whole lecture had been outlined in a single pass.

Instructions:
- Decide the true main topics of the whole lecture; these are the level 1 items. A level 1 item of a partial outline may become a subtopic in the master outline.
- Numbering must be continuous across the whole master outline.
- When the same topic ends one partial outline and starts the next, combine both mentions into a single item and keep every sub-detail from both.
- When a concept is introduced in one partial outline and elaborated in another, place the elaboration under the introduction.
- Keep every unique concept, definition, example and sub-point.
- Write item text plainly, with no bold, italics or other markup.
- Respond with ONLY the merged numbered outline, with no preamble, change summary or closing text.

--- PARTIAL OUTLINES (in lecture order) ---
%s--- END OF PARTIAL OUTLINES ---

MERGED MASTER OUTLINE (start with "1."):
`

const sectionTemplate = `You are an expert academic writer producing detailed study material.
Write Markdown study notes for ONE SECTION of a lecture outline, using the full lecture transcript as your source.

--- OUTLINE SECTION TO DEVELOP ---
%s

--- FULL TRANSCRIPT (reference) ---
%s

Instructions:
- The section's first line becomes the main "## " heading; subpoints become "###" and "####" headings or bullet lists, following the outline's hierarchy.
- For every point, find the matching material in the transcript, then define concepts, explain processes and develop the examples given there. Do not just paraphrase.
- If the transcript has too little on a point, say "(No detailed information for this point was found in the transcript.)". Never invent content.
- Use **bold** for key terms inside explanations and code blocks for code or commands.
- Respond with ONLY the notes for this section, starting directly with the "## " heading.

--- NOTES FOR THIS SECTION ---
`

// Stop sequences that cut a merge off before it adds commentary.
var MergeStopSequences = []string{
	"\n\n--- END OF RESPONSE ---",
	"\n---",
	"\nThis merged master outline",
}

// Stop sequences that keep section notes from running into the next section.
var SectionStopSequences = []string{
	"\n\n--- END OF NOTES ---",
	"\n\n## ",
}

// SinglePass builds the prompt for outlining a whole document at once.
func SinglePass(text string) string {
	return fmt.Sprintf(singlePassTemplate, text)
}

// Overhead is the single-pass prompt with no content: the fixed cost every
// budget calculation subtracts.
func Overhead() string {
	return SinglePass("")
}

// Partial builds the prompt for one chunk. index is 1-based.
func Partial(text string, index, total int) string {
	return fmt.Sprintf(partialTemplate, index, total, index, total, text)
}

// Merge builds the prompt that combines partial outlines, each under its own
// delimiter in chunk order.
func Merge(partials []string) string {
	var sb strings.Builder
	for i, p := range partials {
		fmt.Fprintf(&sb, "--- PARTIAL OUTLINE %d ---\n%s\n\n", i+1, p)
	}
	return fmt.Sprintf(mergeTemplate, sb.String())
}

// Section builds the prompt for elaborating one outline section.
func Section(section, transcript string) string {
	return fmt.Sprintf(sectionTemplate, section, transcript)
}
