package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evharten/mnema/pkg/notes"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the memory_list MCP tool.
type ListTool struct {
	svc *notes.Service
}

// NewListTool creates a ListTool.
func NewListTool(svc *notes.Service) *ListTool {
	return &ListTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_list",
		mcp.WithDescription(
			"List the Markdown notes in an agent's workspace (the root and memory/, "+
				"non-recursive). Optionally filter with a glob pattern.",
		),
		mcp.WithString("agent",
			mcp.Description("Agent whose workspace to list (default agent when omitted)"),
		),
		mcp.WithString("pattern",
			mcp.Description("Glob filter on workspace-relative paths, e.g. memory/*"),
		),
	)
}

// Handle processes the memory_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent := req.GetString("agent", "")
	pattern := req.GetString("pattern", "")

	report, err := t.svc.ListFiles(ctx, agent, pattern)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}

	if len(report.Files) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes in %s:\n\n", len(report.Files), report.WorkspaceDir)
	for _, entry := range report.Files {
		fmt.Fprintf(&b, "- %s (%d bytes, modified %s)\n",
			entry.Path,
			entry.SizeBytes,
			time.UnixMilli(entry.ModifiedAtMs).UTC().Format(time.RFC3339))
	}

	return mcp.NewToolResultText(b.String()), nil
}
