package mcptools

import (
	"context"
	"fmt"

	"github.com/evharten/mnema/pkg/notes"
	"github.com/mark3labs/mcp-go/mcp"
)

// WriteTool handles the memory_write MCP tool.
type WriteTool struct {
	svc *notes.Service
}

// NewWriteTool creates a WriteTool.
func NewWriteTool(svc *notes.Service) *WriteTool {
	return &WriteTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_write.
func (t *WriteTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_write",
		mcp.WithDescription(
			"Write a Markdown note into an agent's workspace, replacing the whole "+
				"file. Parent directories are created as needed. Only .md paths are accepted.",
		),
		mcp.WithString("agent",
			mcp.Description("Agent whose workspace to write into (default agent when omitted)"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workspace-relative note path, e.g. memory/decisions.md"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full new file content"),
		),
	)
}

// Handle processes the memory_write tool call.
func (t *WriteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	// Empty content is a legal overwrite, so presence matters, not length.
	content, ok := stringArg(req, "content")
	if !ok {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	agent := req.GetString("agent", "")

	res, err := t.svc.WriteFile(ctx, agent, path, content)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write failed: %v", err)), nil
	}

	verb := "Updated"
	if res.Created {
		verb = "Created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s (%d bytes)", verb, res.Path, res.BytesWritten)), nil
}
