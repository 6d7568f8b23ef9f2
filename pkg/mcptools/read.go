package mcptools

import (
	"context"
	"fmt"

	"github.com/evharten/mnema/pkg/notes"
	"github.com/evharten/mnema/pkg/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ReadTool handles the memory_read MCP tool.
type ReadTool struct {
	svc *notes.Service
}

// NewReadTool creates a ReadTool.
func NewReadTool(svc *notes.Service) *ReadTool {
	return &ReadTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_read.
func (t *ReadTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_read",
		mcp.WithDescription(
			"Read a Markdown note from an agent's workspace, optionally a line window. "+
				"Served from the search index when available, otherwise straight from disk.",
		),
		mcp.WithString("agent",
			mcp.Description("Agent whose workspace to read from (default agent when omitted)"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workspace-relative note path, e.g. memory/decisions.md"),
		),
		mcp.WithNumber("from",
			mcp.Description("First line to return, 1-indexed"),
		),
		mcp.WithNumber("lines",
			mcp.Description("Number of lines to return (through the end when omitted)"),
		),
	)
}

// Handle processes the memory_read tool call.
func (t *ReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	agent := req.GetString("agent", "")

	var window *workspace.Window
	if from, ok := intArg(req, "from"); ok {
		window = &workspace.Window{FromLine: from}
	}
	if lines, ok := intArg(req, "lines"); ok {
		if window == nil {
			window = &workspace.Window{FromLine: 1}
		}
		count := lines
		window.LineCount = &count
	}

	res, err := t.svc.ReadFile(ctx, agent, path, window)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s (source: %s)\n\n%s", res.Path, res.Source, res.Content)), nil
}
