package gateway

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/evharten/mnema/internal/observability"
	"github.com/evharten/mnema/pkg/notes"
	"github.com/evharten/mnema/pkg/workspace"
)

// registerBuiltinMethods registers all built-in RPC methods
func (s *Server) registerBuiltinMethods() {
	agentParam := ParamSpec{
		Name:        "agentId",
		Type:        "string",
		Description: "Agent whose workspace to address; the configured default when omitted",
	}
	pathParam := ParamSpec{
		Name:        "path",
		Type:        "string",
		Description: "Workspace-relative note path",
		Required:    true,
	}

	statusSchema := mustSchema([]ParamSpec{agentParam})
	filesSchema := mustSchema([]ParamSpec{
		agentParam,
		{Name: "pattern", Type: "string", Description: "Glob filter applied to workspace-relative paths"},
	})
	readSchema := mustSchema([]ParamSpec{
		agentParam,
		pathParam,
		{Name: "from", Type: "integer", Description: "First line to return, 1-indexed"},
		{Name: "lines", Type: "integer", Description: "Number of lines to return"},
	})
	writeSchema := mustSchema([]ParamSpec{
		agentParam,
		pathParam,
		{Name: "content", Type: "string", Description: "Full new file content", Required: true},
	})

	_ = s.router.RegisterMethod("ping", s.handlePing)
	_ = s.router.RegisterMethod("system.info", s.handleSystemInfo)
	_ = s.router.RegisterMethod("memory.status", withSchema(statusSchema, s.handleMemoryStatus))
	_ = s.router.RegisterMethod("memory.files", withSchema(filesSchema, s.handleMemoryFiles))
	_ = s.router.RegisterMethod("memory.read", withSchema(readSchema, s.handleMemoryRead))
	_ = s.router.RegisterMethod("memory.write", withSchema(writeSchema, s.handleMemoryWrite))
}

func stringParam(params map[string]interface{}, key string) string {
	value, _ := params[key].(string)
	return value
}

// intParam reads a numeric parameter. JSON decoding produces float64; direct
// callers may pass int.
func intParam(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// serviceError maps note service failures to boundary codes: caller mistakes
// become InvalidParams, everything else OperationUnavailable.
func serviceError(err error) *RPCError {
	if errors.Is(err, notes.ErrInvalidRequest) || errors.Is(err, workspace.ErrUnsupportedType) {
		return &RPCError{Code: InvalidParams, Message: err.Error()}
	}
	return &RPCError{Code: OperationUnavailable, Message: err.Error()}
}

// handlePing handles the ping RPC method
func (s *Server) handlePing(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"pong":      true,
		"timestamp": time.Now().UnixMilli(),
	}, nil
}

// handleSystemInfo handles the system.info RPC method
func (s *Server) handleSystemInfo(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	methods := s.router.GetMethods()
	sort.Strings(methods)

	return map[string]interface{}{
		"name":     "mnema",
		"version":  s.version,
		"uptimeMs": time.Since(s.startedAt).Milliseconds(),
		"clients":  s.clients.Count(),
		"methods":  methods,
	}, nil
}

// handleMemoryStatus handles the memory.status RPC method
func (s *Server) handleMemoryStatus(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	report, err := s.notes.Status(ctx, stringParam(params, "agentId"))
	if err != nil {
		return nil, serviceError(err)
	}
	return report, nil
}

// handleMemoryFiles handles the memory.files RPC method
func (s *Server) handleMemoryFiles(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	report, err := s.notes.ListFiles(ctx, stringParam(params, "agentId"), stringParam(params, "pattern"))
	if err != nil {
		return nil, serviceError(err)
	}
	return report, nil
}

// handleMemoryRead handles the memory.read RPC method
func (s *Server) handleMemoryRead(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	var window *workspace.Window
	if from, ok := intParam(params, "from"); ok {
		window = &workspace.Window{FromLine: from}
	}
	if lines, ok := intParam(params, "lines"); ok {
		if window == nil {
			window = &workspace.Window{FromLine: 1}
		}
		count := lines
		window.LineCount = &count
	}

	res, err := s.notes.ReadFile(ctx, stringParam(params, "agentId"), stringParam(params, "path"), window)
	if err != nil {
		return nil, serviceError(err)
	}
	return res, nil
}

// handleMemoryWrite handles the memory.write RPC method
func (s *Server) handleMemoryWrite(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	res, err := s.notes.WriteFile(ctx, stringParam(params, "agentId"), stringParam(params, "path"), stringParam(params, "content"))
	if err != nil {
		return nil, serviceError(err)
	}
	return res, nil
}

// PublishWorkspaceEvent broadcasts a note file change to connected clients.
func (s *Server) PublishWorkspaceEvent(agentID string, evt workspace.Event) {
	observability.RecordWatchEvent(string(evt.Kind))

	s.broadcaster.BroadcastTyped(EventMessage{
		Event:   "workspace.file.changed",
		Stream:  StreamTypeWorkspace,
		Phase:   string(evt.Kind),
		AgentID: agentID,
		Data: map[string]interface{}{
			"path": evt.Path,
			"kind": string(evt.Kind),
		},
	})
}
