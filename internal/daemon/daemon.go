package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/evharten/mnema/internal/config"
	"github.com/evharten/mnema/internal/logger"
	"github.com/evharten/mnema/internal/observability"
	"github.com/evharten/mnema/internal/tracing"
	"github.com/evharten/mnema/pkg/gateway"
	"github.com/evharten/mnema/pkg/journal"
	"github.com/evharten/mnema/pkg/notes"
	"github.com/evharten/mnema/pkg/workspace"
)

// Daemon wires the long-running services together: the note service, one
// journal housekeeper and workspace watcher per agent, and the gateway
// server when enabled.
type Daemon struct {
	config  *config.Config
	logger  *logger.Logger
	version string

	// Services
	notes         *notes.Service
	gatewayServer *gateway.Server
	housekeepers  []*journal.Housekeeper
	watchers      []*workspace.Watcher

	// Internal
	lifecycle *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger, version string) (*Daemon, error) {
	if version == "" {
		version = "dev"
	}

	observability.EnsureRegistered()
	if err := tracing.InitOpenTelemetry("mnema-daemon", version); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	} else {
		log.Info().Msg("Tracing initialized successfully")
	}

	d := &Daemon{
		config:         cfg,
		logger:         log,
		version:        version,
		tracingEnabled: true,
	}

	if err := d.initializeServices(); err != nil {
		if d.tracingEnabled {
			_ = tracing.ShutdownOpenTelemetry(context.Background())
			d.tracingEnabled = false
		}
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeServices initializes all services in dependency order
func (d *Daemon) initializeServices() error {
	// Initialize audit logger
	auditPath := filepath.Join(d.config.DataDir, "audit.log")
	if err := observability.InitAuditLogger(auditPath); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
	} else {
		d.logger.Info().Str("path", auditPath).Msg("Audit logger initialized")
	}

	svc, err := notes.NewService(d.config, d.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create note service: %w", err)
	}
	d.notes = svc
	d.logger.Info().Msg("Note service initialized")

	if d.config.Gateway.Enabled {
		gatewayServer, err := gateway.NewServer(gateway.Config{
			Host:         d.config.Gateway.Host,
			Port:         d.config.Gateway.Port,
			SharedSecret: d.config.Gateway.SharedSecret,
			Version:      d.version,
			Notes:        svc,
			Logger:       d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway server: %w", err)
		}
		d.gatewayServer = gatewayServer
		d.logger.Info().
			Str("host", d.config.Gateway.Host).
			Int("port", d.config.Gateway.Port).
			Msg("Gateway server initialized")
	}

	for _, agent := range d.config.Agents {
		agentID := agent.ID
		root := d.config.AgentWorkspaceDir(agentID)

		housekeeper, err := journal.NewHousekeeper(journal.HousekeeperConfig{
			Root:          root,
			AgentID:       agentID,
			Schedule:      d.config.Journal.SweepSchedule,
			RetentionDays: d.config.Journal.RetentionDays,
			DailyNotes:    d.config.Journal.DailyNotes,
			Logger:        d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create housekeeper for agent %s: %w", agentID, err)
		}
		d.housekeepers = append(d.housekeepers, housekeeper)

		if d.config.Workspace.WatchEnabled {
			watcher, err := workspace.NewWatcher(workspace.WatcherConfig{
				Root:               root,
				StabilityThreshold: time.Duration(d.config.Workspace.WatchDebounceMs) * time.Millisecond,
				Handler: func(evt workspace.Event) {
					d.publishWorkspaceEvent(agentID, evt)
				},
			})
			if err != nil {
				return fmt.Errorf("failed to create watcher for agent %s: %w", agentID, err)
			}
			d.watchers = append(d.watchers, watcher)
		}
	}
	d.logger.Info().Int("agents", len(d.config.Agents)).Msg("Agent workspaces initialized")

	return nil
}

// publishWorkspaceEvent forwards a watcher event to connected gateway
// clients. A nil gateway (disabled in config) drops the event.
func (d *Daemon) publishWorkspaceEvent(agentID string, evt workspace.Event) {
	if d.gatewayServer == nil {
		return
	}
	d.gatewayServer.PublishWorkspaceEvent(agentID, evt)
}

// ensureWorkspaceLayout creates the workspace skeleton so watchers have
// directories to attach to before the first journal pass runs.
func ensureWorkspaceLayout(root string) error {
	return os.MkdirAll(filepath.Join(root, workspace.MemoryDirName), 0o755)
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Str("version", d.version).Msg("Starting mnema daemon")

	// Claim the PID file before any service comes up. A live sibling
	// instance leaves this daemon fully stopped.
	if err := d.lifecycle.Start(); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	for _, agent := range d.config.Agents {
		root := d.config.AgentWorkspaceDir(agent.ID)
		if err := ensureWorkspaceLayout(root); err != nil {
			logger.Warn().Err(err).Str("agent_id", agent.ID).Msg("Failed to ensure workspace layout")
		}
	}

	// Start journal housekeepers
	for _, housekeeper := range d.housekeepers {
		if err := housekeeper.Start(); err != nil {
			return fmt.Errorf("failed to start journal housekeeper: %w", err)
		}
	}
	logger.Info().Int("count", len(d.housekeepers)).Msg("Journal housekeepers started")

	// Start workspace watchers
	for _, watcher := range d.watchers {
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start workspace watcher: %w", err)
		}
	}
	if len(d.watchers) > 0 {
		logger.Info().Int("count", len(d.watchers)).Msg("Workspace watchers started")
	}

	// Start gateway server
	if d.gatewayServer != nil {
		if err := d.gatewayServer.Start(); err != nil {
			return fmt.Errorf("failed to start gateway server: %w", err)
		}
		logger.Info().Msg("Gateway server started")
	}

	logger.Info().Msg("Daemon started successfully - all core modules active")

	return nil
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping mnema daemon")

	// Stop gateway server
	if d.gatewayServer != nil {
		if err := d.gatewayServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop gateway server")
		}
	}

	// Stop workspace watchers
	for _, watcher := range d.watchers {
		if err := watcher.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop workspace watcher")
		}
	}

	// Stop journal housekeepers
	for _, housekeeper := range d.housekeepers {
		if housekeeper.IsRunning() {
			if err := housekeeper.Stop(); err != nil {
				logger.Error().Err(err).Msg("Failed to stop journal housekeeper")
			}
		}
	}

	// Stop lifecycle manager
	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if d.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}

	// Close audit logger
	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
		Version: d.version,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until the daemon receives SIGINT or SIGTERM, then stops it
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetNotes returns the note service
func (d *Daemon) GetNotes() *notes.Service {
	return d.notes
}

// Status represents daemon status
type Status struct {
	Running   bool
	Version   string
	Uptime    time.Duration
	StartTime time.Time
}
