package cli

import (
	"fmt"

	"github.com/evharten/mnema/internal/config"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run interactive configuration wizard",
	Long: `Run an interactive configuration wizard to set up mnema.
The wizard walks through agents, workspace locations, journal retention,
and the gateway, then writes the configuration file.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	wizard := config.NewWizard()

	cfg, err := wizard.Run()
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loader := config.NewLoader(cfgFile)
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("\nConfiguration saved to: %s\n", loader.GetConfigPath())
	for _, agent := range cfg.Agents {
		fmt.Printf("  agent %s -> %s\n", agent.ID, cfg.AgentWorkspaceDir(agent.ID))
	}
	fmt.Println("\nStart the daemon with:  mnema serve")
	fmt.Println("Or serve MCP tools with: mnema mcp")

	return nil
}
