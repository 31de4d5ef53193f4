// Package mcptools exposes outlining and notes generation as MCP tools.
package mcptools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the outliner tools registered.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "outliner",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_outline",
		Description: "Generate a hierarchical numbered outline (1., 1.1., 1.1.1.) of a transcript or document. Long texts are split into token-budgeted chunks, outlined per chunk and merged.",
	}, svc.GenerateOutline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_notes",
		Description: "Write a Markdown study guide from a transcript, one section per top-level outline item. Builds the outline first unless one is supplied.",
	}, svc.GenerateNotes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_outline",
		Description: "Parse a dot-numbered outline into nodes with number, depth, title, parent and children. Lines without a number are ignored.",
	}, svc.ParseOutline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "split_sections",
		Description: "Split a numbered outline into its top-level sections, each a header line plus body.",
	}, svc.SplitSections)

	return server
}
