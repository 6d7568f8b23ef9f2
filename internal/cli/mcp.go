package cli

import (
	"fmt"

	"github.com/evharten/mnema/pkg/mcptools"
	"github.com/evharten/mnema/pkg/notes"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over MCP stdio",
	Long: `Run an MCP server on stdio exposing the memory tools
(memory_status, memory_list, memory_read, memory_write).
Add it to an MCP client configuration as: mnema mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the MCP transport; logs may only go to the file sink
	log, err := newLogger(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	svc, err := notes.NewService(cfg, log.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create note service: %w", err)
	}

	s := server.NewMCPServer(
		"mnema",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	mcptools.Register(s, svc)

	log.Info().Str("version", version).Msg("MCP server listening on stdio")

	return server.ServeStdio(s)
}
