package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/outliner/internal/outline"
	"github.com/dgallion1/outliner/internal/pipeline"
)

// GenerateOutlineInput is the input for the generate_outline tool.
type GenerateOutlineInput struct {
	Text string `json:"text" jsonschema:"the transcript or document text to outline"`
}

// GenerateOutlineOutput is the result of the generate_outline tool.
type GenerateOutlineOutput struct {
	Outline        string `json:"outline"`
	Mode           string `json:"mode"`
	Chunks         int    `json:"chunks"`
	Partials       int    `json:"partials"`
	Merged         bool   `json:"merged"`
	SkippedWords   int    `json:"skippedWords"`
	DocumentTokens int    `json:"documentTokens"`
}

// GenerateNotesInput is the input for the generate_notes tool.
type GenerateNotesInput struct {
	Transcript string `json:"transcript" jsonschema:"the full transcript used as reference for every section"`
	Outline    string `json:"outline,omitempty" jsonschema:"an existing numbered outline; built from the transcript when empty"`
	Title      string `json:"title,omitempty" jsonschema:"title for the study guide heading"`
}

// GenerateNotesOutput is the result of the generate_notes tool.
type GenerateNotesOutput struct {
	Outline    string   `json:"outline"`
	Notes      string   `json:"notes"`
	Sections   int      `json:"sections"`
	Elaborated int      `json:"elaborated"`
	Skipped    []string `json:"skipped,omitempty"`
}

// OutlineInput is the input for the parse_outline and split_sections tools.
type OutlineInput struct {
	Outline string `json:"outline" jsonschema:"numbered outline text"`
}

// OutlineNode is one parsed outline line. Parent is -1 for top-level items;
// Children holds node indexes.
type OutlineNode struct {
	Index    int    `json:"index"`
	Number   string `json:"number"`
	Depth    int    `json:"depth"`
	Title    string `json:"title"`
	Parent   int    `json:"parent"`
	Children []int  `json:"children,omitempty"`
}

// ParseOutlineOutput is the result of the parse_outline tool. Nodes are in
// source order.
type ParseOutlineOutput struct {
	Nodes []OutlineNode `json:"nodes"`
	Roots []int         `json:"roots"`
}

type SectionOutput struct {
	Header string   `json:"header"`
	Title  string   `json:"title"`
	Body   []string `json:"body,omitempty"`
}

type SplitSectionsOutput struct {
	Sections []SectionOutput `json:"sections"`
}

// Service holds the orchestrator used by tool handlers.
type Service struct {
	orch *pipeline.Orchestrator
}

func NewService(orch *pipeline.Orchestrator) *Service {
	return &Service{orch: orch}
}

func (s *Service) GenerateOutline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateOutlineInput,
) (*mcp.CallToolResult, GenerateOutlineOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, GenerateOutlineOutput{}, fmt.Errorf("text is required")
	}
	res, err := s.orch.BuildOutline(ctx, input.Text)
	if err != nil {
		return nil, GenerateOutlineOutput{}, fmt.Errorf("build outline (%s): %w", pipeline.Classify(err), err)
	}
	return nil, GenerateOutlineOutput{
		Outline:        res.Text,
		Mode:           string(res.Mode),
		Chunks:         res.Chunks,
		Partials:       res.Partials,
		Merged:         res.Merged,
		SkippedWords:   res.Skipped,
		DocumentTokens: res.DocumentTokens,
	}, nil
}

func (s *Service) GenerateNotes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateNotesInput,
) (*mcp.CallToolResult, GenerateNotesOutput, error) {
	if strings.TrimSpace(input.Transcript) == "" {
		return nil, GenerateNotesOutput{}, fmt.Errorf("transcript is required")
	}

	outlineText := strings.TrimSpace(input.Outline)
	if outlineText == "" {
		res, err := s.orch.BuildOutline(ctx, input.Transcript)
		if err != nil {
			return nil, GenerateNotesOutput{}, fmt.Errorf("build outline (%s): %w", pipeline.Classify(err), err)
		}
		outlineText = res.Text
	}

	notes, err := s.orch.Elaborate(ctx, input.Title, outlineText, input.Transcript)
	if err != nil {
		return nil, GenerateNotesOutput{}, fmt.Errorf("elaborate notes (%s): %w", pipeline.Classify(err), err)
	}
	return nil, GenerateNotesOutput{
		Outline:    outlineText,
		Notes:      notes.Markdown,
		Sections:   notes.Sections,
		Elaborated: notes.Elaborated,
		Skipped:    notes.Skipped,
	}, nil
}

func (s *Service) ParseOutline(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input OutlineInput,
) (*mcp.CallToolResult, ParseOutlineOutput, error) {
	tree := outline.Parse(input.Outline)

	// Tree ids start at 1; expose 0-based indexes.
	out := ParseOutlineOutput{Nodes: make([]OutlineNode, 0, tree.Len()), Roots: []int{}}
	for _, id := range tree.Roots() {
		out.Roots = append(out.Roots, int(id)-1)
	}
	tree.Walk(func(id outline.NodeID, n outline.Node) bool {
		node := OutlineNode{
			Index:  int(id) - 1,
			Number: n.Number,
			Depth:  n.Depth,
			Title:  n.Title,
			Parent: int(n.Parent) - 1,
		}
		for _, c := range n.Children {
			node.Children = append(node.Children, int(c)-1)
		}
		out.Nodes = append(out.Nodes, node)
		return true
	})
	return nil, out, nil
}

func (s *Service) SplitSections(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input OutlineInput,
) (*mcp.CallToolResult, SplitSectionsOutput, error) {
	out := SplitSectionsOutput{Sections: []SectionOutput{}}
	for _, sec := range outline.SplitSections(input.Outline) {
		out.Sections = append(out.Sections, SectionOutput{
			Header: sec.Header,
			Title:  sec.Title(),
			Body:   sec.Body,
		})
	}
	return nil, out, nil
}
