// Package mcptools exposes the note service as MCP tools.
//
// Each tool follows the same pattern:
//   - A struct holding the note service, injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Service failures become tool result errors; the Go error return is
// reserved for transport failures.
package mcptools

import (
	"github.com/evharten/mnema/pkg/notes"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Register wires all note tools into an MCP server.
func Register(s *server.MCPServer, svc *notes.Service) {
	statusTool := NewStatusTool(svc)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	listTool := NewListTool(svc)
	s.AddTool(listTool.Definition(), listTool.Handle)

	readTool := NewReadTool(svc)
	s.AddTool(readTool.Definition(), readTool.Handle)

	writeTool := NewWriteTool(svc)
	s.AddTool(writeTool.Definition(), writeTool.Handle)
}

// intArg extracts an integer argument and whether it was present (JSON
// numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string) (int, bool) {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// stringArg extracts a string argument and whether it was present, so an
// explicit empty string stays distinguishable from an omitted one.
func stringArg(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key].(string)
	return v, ok
}
