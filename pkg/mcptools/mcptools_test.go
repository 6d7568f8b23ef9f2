package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evharten/mnema/internal/config"
	"github.com/evharten/mnema/pkg/notes"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*notes.Service, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Workspace.Root = filepath.Join(dir, "workspaces")

	svc, err := notes.NewService(cfg, zerolog.New(os.Stdout).Level(zerolog.Disabled))
	require.NoError(t, err)

	return svc, cfg.AgentWorkspaceDir("main")
}

func seedNote(t *testing.T, workspaceDir, rel, content string) {
	t.Helper()

	full := filepath.Join(workspaceDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, r)
	require.NotEmpty(t, r.Content)
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

func TestStatusTool(t *testing.T) {
	svc, workspaceDir := newTestService(t)
	tool := NewStatusTool(svc)

	t.Run("definition", func(t *testing.T) {
		def := tool.Definition()
		assert.Equal(t, "memory_status", def.Name)
		assert.Contains(t, def.InputSchema.Properties, "agent")
		assert.Empty(t, def.InputSchema.Required)
	})

	t.Run("reports workspace totals without an index", func(t *testing.T) {
		seedNote(t, workspaceDir, "notes.md", "# Notes\n")
		seedNote(t, workspaceDir, "memory/fact.md", "fact\n")

		result, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		require.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, "**Workspace notes**: 2")
		assert.Contains(t, text, "unavailable")
	})

	t.Run("unknown agent becomes a tool error", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"agent": "ghost",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestListTool(t *testing.T) {
	svc, workspaceDir := newTestService(t)
	tool := NewListTool(svc)

	t.Run("definition", func(t *testing.T) {
		def := tool.Definition()
		assert.Equal(t, "memory_list", def.Name)
		assert.Contains(t, def.InputSchema.Properties, "pattern")
	})

	t.Run("empty workspace", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Equal(t, "No notes found.", resultText(t, result))
	})

	t.Run("lists notes", func(t *testing.T) {
		seedNote(t, workspaceDir, "notes.md", "root\n")
		seedNote(t, workspaceDir, "memory/fact.md", "fact\n")

		result, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		require.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, "Found 2 notes")
		assert.Contains(t, text, "- notes.md")
		assert.Contains(t, text, "- memory/fact.md")
	})

	t.Run("applies pattern", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"pattern": "memory/*",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, "memory/fact.md")
		assert.NotContains(t, text, "- notes.md")
	})

	t.Run("invalid pattern becomes a tool error", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"pattern": "[",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestReadTool(t *testing.T) {
	svc, workspaceDir := newTestService(t)
	tool := NewReadTool(svc)
	seedNote(t, workspaceDir, "memory/log.md", "line one\nline two\nline three\nline four")

	t.Run("definition", func(t *testing.T) {
		def := tool.Definition()
		assert.Equal(t, "memory_read", def.Name)
		assert.Contains(t, def.InputSchema.Required, "path")
	})

	t.Run("reads whole file", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path": "memory/log.md",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, "memory/log.md (source: workspace)")
		assert.Contains(t, text, "line one\nline two\nline three\nline four")
	})

	t.Run("reads a line window", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path":  "memory/log.md",
			"from":  float64(2),
			"lines": float64(2),
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		text := resultText(t, result)
		assert.Contains(t, text, "line two\nline three")
		assert.NotContains(t, text, "line four")
	})

	t.Run("missing path becomes a tool error", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		require.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "'path' is required")
	})

	t.Run("missing file becomes a tool error", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path": "memory/absent.md",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestWriteTool(t *testing.T) {
	svc, workspaceDir := newTestService(t)
	tool := NewWriteTool(svc)

	t.Run("definition", func(t *testing.T) {
		def := tool.Definition()
		assert.Equal(t, "memory_write", def.Name)
		assert.Contains(t, def.InputSchema.Required, "path")
		assert.Contains(t, def.InputSchema.Required, "content")
	})

	t.Run("creates then updates", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path":    "memory/decisions.md",
			"content": "# Decisions\n",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, resultText(t, result), "Created memory/decisions.md")

		result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path":    "memory/decisions.md",
			"content": "# Decisions\n\n- ship it\n",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, resultText(t, result), "Updated memory/decisions.md")

		content, err := os.ReadFile(filepath.Join(workspaceDir, "memory", "decisions.md"))
		require.NoError(t, err)
		assert.Contains(t, string(content), "ship it")
	})

	t.Run("empty content is a legal overwrite", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path":    "memory/decisions.md",
			"content": "",
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
	})

	t.Run("missing content becomes a tool error", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path": "memory/decisions.md",
		}))
		require.NoError(t, err)
		require.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "'content' is required")
	})

	t.Run("rejects non-note extension", func(t *testing.T) {
		result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"path":    "script.sh",
			"content": "#!/bin/sh\n",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)

	s := server.NewMCPServer("mnema-test", "0.0.0", server.WithToolCapabilities(true))
	Register(s, svc)
}
