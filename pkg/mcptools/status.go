package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evharten/mnema/pkg/notes"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatusTool handles the memory_status MCP tool.
type StatusTool struct {
	svc *notes.Service
}

// NewStatusTool creates a StatusTool backed by the given note service.
func NewStatusTool(svc *notes.Service) *StatusTool {
	return &StatusTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_status",
		mcp.WithDescription(
			"Report the state of an agent's workspace memory: how many notes exist "+
				"and whether the search index is available.",
		),
		mcp.WithString("agent",
			mcp.Description("Agent whose workspace to inspect (default agent when omitted)"),
		),
	)
}

// Handle processes the memory_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent := req.GetString("agent", "")

	report, err := t.svc.Status(ctx, agent)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("## Memory Status\n\n")
	fmt.Fprintf(&b, "- **Workspace notes**: %d\n", report.TotalFiles)

	if !report.SearchEnabled || report.Status == nil {
		b.WriteString("- **Search index**: unavailable (reads fall back to the workspace)\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	idx := report.Status
	b.WriteString("- **Search index**: available\n")
	fmt.Fprintf(&b, "- **Indexed files**: %d\n", idx.FileCount)
	fmt.Fprintf(&b, "- **Chunks**: %d\n", idx.ChunkCount)
	if idx.Provider != "" {
		fmt.Fprintf(&b, "- **Provider**: %s\n", idx.Provider)
	}
	if idx.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", idx.Model)
	}
	if idx.Dirty {
		b.WriteString("- **Dirty**: index has unsynced changes\n")
	}
	if idx.LastSyncAtMs != nil {
		fmt.Fprintf(&b, "- **Last sync**: %s\n", time.UnixMilli(*idx.LastSyncAtMs).UTC().Format(time.RFC3339))
	}

	return mcp.NewToolResultText(b.String()), nil
}
