package gateway

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evharten/mnema/internal/config"
	"github.com/evharten/mnema/pkg/notes"
	"github.com/evharten/mnema/pkg/workspace"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway(t *testing.T) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Workspace.Root = filepath.Join(dir, "workspaces")

	svc, err := notes.NewService(cfg, zerolog.New(os.Stdout).Level(zerolog.Disabled))
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Port:         18080,
		SharedSecret: "test-secret",
		Version:      "test",
		Notes:        svc,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	return srv, cfg.AgentWorkspaceDir("main")
}

// routeJSON pushes a request through ParseRequest and RouteRequest the same
// way a connection would, so params arrive as decoded JSON values.
func routeJSON(t *testing.T, srv *Server, method string, params map[string]interface{}) *RPCResponse {
	t.Helper()

	payload := map[string]interface{}{
		"id":     "req-1",
		"method": method,
	}
	if params != nil {
		payload["params"] = params
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := srv.router.ParseRequest(data)
	require.NoError(t, err)

	return srv.router.RouteRequest(context.Background(), req)
}

func seedNote(t *testing.T, workspaceDir, rel, content string) {
	t.Helper()

	full := filepath.Join(workspaceDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestNewServer(t *testing.T) {
	srv, _ := testGateway(t)

	t.Run("applies defaults", func(t *testing.T) {
		assert.Equal(t, "127.0.0.1", srv.host)
		assert.Equal(t, 30*time.Second, srv.tickInterval)
		assert.Equal(t, "test", srv.version)
	})

	t.Run("rejects missing port", func(t *testing.T) {
		_, err := NewServer(Config{SharedSecret: "s", Notes: srv.notes})
		assert.Error(t, err)
	})

	t.Run("rejects missing secret", func(t *testing.T) {
		_, err := NewServer(Config{Port: 18080, Notes: srv.notes})
		assert.Error(t, err)
	})

	t.Run("rejects missing note service", func(t *testing.T) {
		_, err := NewServer(Config{Port: 18080, SharedSecret: "s"})
		assert.Error(t, err)
	})

	t.Run("registers builtin methods", func(t *testing.T) {
		for _, method := range []string{
			"ping",
			"system.info",
			"memory.status",
			"memory.files",
			"memory.read",
			"memory.write",
		} {
			assert.True(t, srv.router.HasMethod(method), method)
		}
	})
}

func TestHandlePing(t *testing.T) {
	srv, _ := testGateway(t)

	resp := routeJSON(t, srv, "ping", nil)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["pong"])
	assert.NotZero(t, result["timestamp"])
}

func TestHandleSystemInfo(t *testing.T) {
	srv, _ := testGateway(t)

	resp := routeJSON(t, srv, "system.info", nil)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "mnema", result["name"])
	assert.Equal(t, "test", result["version"])
	assert.Contains(t, result["methods"], "memory.read")
}

func TestMemoryStatus(t *testing.T) {
	t.Run("reports workspace totals without an index", func(t *testing.T) {
		srv, workspaceDir := testGateway(t)
		seedNote(t, workspaceDir, "notes.md", "# Notes\n")
		seedNote(t, workspaceDir, "memory/fact.md", "fact\n")

		resp := routeJSON(t, srv, "memory.status", nil)
		require.Nil(t, resp.Error)

		encoded, err := json.Marshal(resp.Result)
		require.NoError(t, err)
		assert.JSONEq(t, `{"enabled":true,"searchEnabled":false,"totalFiles":2}`, string(encoded))
	})

	t.Run("rejects unknown agent", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.status", map[string]interface{}{"agentId": "ghost"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})
}

func TestMemoryWriteReadRoundTrip(t *testing.T) {
	srv, _ := testGateway(t)

	writeResp := routeJSON(t, srv, "memory.write", map[string]interface{}{
		"path":    "memory/decisions.md",
		"content": "line one\nline two\nline three\nline four",
	})
	require.Nil(t, writeResp.Error)

	writeResult := writeResp.Result.(*workspace.WriteResult)
	assert.True(t, writeResult.OK)
	assert.True(t, writeResult.Created)
	assert.Equal(t, "memory/decisions.md", writeResult.Path)

	readResp := routeJSON(t, srv, "memory.read", map[string]interface{}{
		"path": "memory/decisions.md",
	})
	require.Nil(t, readResp.Error)

	readResult := readResp.Result.(*notes.ReadResult)
	assert.Equal(t, "line one\nline two\nline three\nline four", readResult.Content)
	assert.Equal(t, notes.SourceWorkspace, readResult.Source)

	windowResp := routeJSON(t, srv, "memory.read", map[string]interface{}{
		"path":  "memory/decisions.md",
		"from":  2,
		"lines": 2,
	})
	require.Nil(t, windowResp.Error)

	windowResult := windowResp.Result.(*notes.ReadResult)
	assert.Equal(t, "line two\nline three", windowResult.Content)
}

func TestMemoryRead_Errors(t *testing.T) {
	t.Run("missing path fails schema validation", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.read", map[string]interface{}{"agentId": "main"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("unknown agent maps to invalid params", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.read", map[string]interface{}{
			"agentId": "ghost",
			"path":    "notes.md",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("missing file maps to unavailable", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.read", map[string]interface{}{
			"path": "memory/absent.md",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, OperationUnavailable, resp.Error.Code)
	})

	t.Run("unknown parameter is rejected", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.read", map[string]interface{}{
			"path":  "notes.md",
			"bogus": true,
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})
}

func TestMemoryWrite_Errors(t *testing.T) {
	t.Run("rejects non-note extension", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.write", map[string]interface{}{
			"path":    "script.sh",
			"content": "#!/bin/sh",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("rejects path escaping the workspace", func(t *testing.T) {
		srv, workspaceDir := testGateway(t)

		resp := routeJSON(t, srv, "memory.write", map[string]interface{}{
			"path":    "../escape.md",
			"content": "nope",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, OperationUnavailable, resp.Error.Code)

		_, err := os.Stat(filepath.Join(filepath.Dir(workspaceDir), "escape.md"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing content fails schema validation", func(t *testing.T) {
		srv, _ := testGateway(t)

		resp := routeJSON(t, srv, "memory.write", map[string]interface{}{
			"path": "notes.md",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})
}

func TestMemoryFiles(t *testing.T) {
	srv, workspaceDir := testGateway(t)
	seedNote(t, workspaceDir, "notes.md", "root\n")
	seedNote(t, workspaceDir, "memory/fact1.md", "one\n")
	seedNote(t, workspaceDir, "memory/fact2.md", "two\n")
	seedNote(t, workspaceDir, "readme.txt", "ignored\n")

	t.Run("lists note files", func(t *testing.T) {
		resp := routeJSON(t, srv, "memory.files", nil)
		require.Nil(t, resp.Error)

		report := resp.Result.(*notes.FilesReport)
		assert.Equal(t, "main", report.AgentID)

		paths := make([]string, 0, len(report.Files))
		for _, entry := range report.Files {
			paths = append(paths, entry.Path)
		}
		assert.ElementsMatch(t, []string{"notes.md", "memory/fact1.md", "memory/fact2.md"}, paths)
	})

	t.Run("applies glob pattern", func(t *testing.T) {
		resp := routeJSON(t, srv, "memory.files", map[string]interface{}{
			"pattern": "memory/*",
		})
		require.Nil(t, resp.Error)

		report := resp.Result.(*notes.FilesReport)
		assert.Len(t, report.Files, 2)
	})

	t.Run("invalid pattern maps to invalid params", func(t *testing.T) {
		resp := routeJSON(t, srv, "memory.files", map[string]interface{}{
			"pattern": "[",
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})
}

func TestPublishWorkspaceEvent(t *testing.T) {
	srv, _ := testGateway(t)

	serverConn, clientConn, cleanup := websocketConnPair(t)
	defer cleanup()

	srv.clients.Add(&Client{
		ID:            "client-1",
		Conn:          serverConn,
		Authenticated: true,
	})

	srv.PublishWorkspaceEvent("main", workspace.Event{
		Path: "memory/fact.md",
		Kind: workspace.EventChange,
	})

	var event EventMessage
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&event))

	assert.Equal(t, "workspace.file.changed", event.Event)
	assert.Equal(t, StreamTypeWorkspace, event.Stream)
	assert.Equal(t, "change", event.Phase)
	assert.Equal(t, "main", event.AgentID)

	data := event.Data.(map[string]interface{})
	assert.Equal(t, "memory/fact.md", data["path"])
	assert.Equal(t, "change", data["kind"])
}
