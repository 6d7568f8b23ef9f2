package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evharten/mnema/internal/config"
	"github.com/evharten/mnema/pkg/notes"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgWhite, color.Bold)
	okColor     = color.New(color.FgGreen, color.Bold)
	downColor   = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgYellow, color.Bold)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and per-agent memory status",
	Long: `Show whether the mnema daemon is running and report the memory surface
of every configured agent: workspace note count and, when the search
index is available, its document and chunk counters.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printDaemonStatus(cfg)

	// The status surface reads the same tiers the daemon serves, so it
	// works whether or not the daemon is up. Logging stays out of the
	// report output.
	svc, err := notes.NewService(cfg, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to create note service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, agent := range cfg.Agents {
		printAgentStatus(ctx, cfg, svc, agent.ID)
	}

	return nil
}

func printDaemonStatus(cfg *config.Config) {
	_, _ = headerColor.Println("Daemon")

	pidFile := filepath.Join(cfg.DataDir, "mnema.pid")
	if !pidAlive(pidFile) {
		printLabel("status", downColor, "stopped")
		return
	}

	pid, err := readPIDFile(pidFile)
	if err != nil {
		printLabel("status", downColor, "stopped")
		return
	}

	printLabel("status", okColor, "running")
	printLabel("pid", nil, fmt.Sprintf("%d", pid))

	// PID file age approximates uptime; it is written once at startup
	if info, err := os.Stat(pidFile); err == nil {
		printLabel("uptime", nil, formatDuration(time.Since(info.ModTime())))
	}
}

func printAgentStatus(ctx context.Context, cfg *config.Config, svc *notes.Service, agentID string) {
	fmt.Println()
	_, _ = headerColor.Printf("Agent %s\n", agentID)
	printLabel("workspace", nil, cfg.AgentWorkspaceDir(agentID))

	report, err := svc.Status(ctx, agentID)
	if err != nil {
		printLabel("memory", warnColor, fmt.Sprintf("unavailable: %v", err))
		return
	}

	printLabel("notes", nil, fmt.Sprintf("%d", report.TotalFiles))

	if !report.SearchEnabled || report.Status == nil {
		printLabel("search", downColor, "disabled (reads fall back to the workspace)")
		return
	}

	printLabel("search", okColor, "enabled")
	printLabel("indexed", nil, fmt.Sprintf("%d files, %d chunks", report.FileCount, report.ChunkCount))
	if report.Dirty {
		printLabel("index", warnColor, "dirty (sync pending)")
	}
	if report.UsingFallback {
		printLabel("index", warnColor, "degraded (fallback search)")
	}
}

func printLabel(label string, clr *color.Color, value string) {
	_, _ = labelColor.Printf("  %s: ", label)
	if clr != nil {
		_, _ = clr.Println(value)
		return
	}
	fmt.Println(value)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
