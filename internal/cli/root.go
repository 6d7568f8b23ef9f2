package cli

import (
	"fmt"

	"github.com/evharten/mnema/internal/config"
	"github.com/evharten/mnema/internal/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mnema",
	Short: "Mnema - workspace memory service for agents",
	Long: `Mnema keeps per-agent memory as plain Markdown notes. Each agent owns a
workspace of note files with windowed reads, guarded writes, and daily
journal upkeep. Notes are served over a WebSocket gateway and as MCP tools,
with an optional search index consulted before falling back to disk.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mnema/mnema.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// SetVersion overrides the version reported by the binary. main stamps it
// at build time via ldflags.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// loadConfig loads and validates the configuration honoring --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds a logger from the config with the --log-level override.
// Console output can be forced off for commands whose stdout is a protocol
// or report surface.
func newLogger(cfg *config.Config, console bool) (*logger.Logger, error) {
	level := cfg.Logging.Level
	if rootCmd.PersistentFlags().Changed("log-level") {
		level = logLevel
	}

	return logger.New(logger.Config{
		Level:     level,
		File:      cfg.Logging.File,
		Console:   console,
		Pretty:    console,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
}
