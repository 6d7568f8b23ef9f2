package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evharten/mnema/internal/observability"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule runs housekeeping at midnight.
const DefaultSweepSchedule = "0 0 * * *"

// cronParser accepts standard five-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Housekeeper runs scheduled journal maintenance for one workspace: layout
// seeding, the daily note, and the retention sweep.
type Housekeeper struct {
	root     string
	agentID  string
	defaults Settings
	schedule cron.Schedule
	logger   zerolog.Logger

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	doneCh       chan struct{}
	lastSettings Settings
}

// HousekeeperConfig configures a Housekeeper.
type HousekeeperConfig struct {
	Root          string
	AgentID       string
	Schedule      string // cron expression, DefaultSweepSchedule when empty
	RetentionDays int
	DailyNotes    bool
	Logger        zerolog.Logger
}

// NewHousekeeper creates a housekeeper for a workspace.
func NewHousekeeper(cfg HousekeeperConfig) (*Housekeeper, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}

	expr := cfg.Schedule
	if expr == "" {
		expr = DefaultSweepSchedule
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}

	defaults := Settings{
		RetentionDays: cfg.RetentionDays,
		DailyNotes:    cfg.DailyNotes,
	}

	return &Housekeeper{
		root:         cfg.Root,
		agentID:      cfg.AgentID,
		defaults:     defaults,
		lastSettings: defaults,
		schedule:     schedule,
		logger:       cfg.Logger.With().Str("component", "journal").Str("agent_id", cfg.AgentID).Logger(),
	}, nil
}

// Start begins the maintenance loop. A pass runs immediately, then on the
// configured schedule.
func (h *Housekeeper) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return fmt.Errorf("housekeeper is already running")
	}

	h.running = true
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	go h.run(h.stopCh, h.doneCh)

	h.logger.Info().Str("root", h.root).Msg("Journal housekeeper started")
	return nil
}

// Stop halts the maintenance loop and waits for an in-progress pass.
func (h *Housekeeper) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return fmt.Errorf("housekeeper is not running")
	}
	h.running = false
	stopCh, doneCh := h.stopCh, h.doneCh
	h.mu.Unlock()

	close(stopCh)
	<-doneCh

	h.logger.Info().Msg("Journal housekeeper stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (h *Housekeeper) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// run is the main maintenance loop.
func (h *Housekeeper) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	if _, err := h.RunPass(time.Now()); err != nil {
		h.logger.Error().Err(err).Msg("Journal pass failed")
	}

	for {
		now := time.Now()
		timer := time.NewTimer(h.schedule.Next(now).Sub(now))

		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			if _, err := h.RunPass(time.Now()); err != nil {
				h.logger.Error().Err(err).Msg("Journal pass failed")
			}
		}
	}
}

// RunPass performs one maintenance pass and returns how many daily notes
// were archived. Per-workspace overrides are re-read on every pass.
func (h *Housekeeper) RunPass(now time.Time) (int, error) {
	start := time.Now()

	settings, err := LoadSettings(h.root, h.defaults)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Ignoring invalid workspace overrides")
		settings = h.defaults
	}
	h.noteSettingsChange(settings)

	archived, err := h.runPass(now, settings)
	observability.RecordJournalSweep(time.Since(start), err == nil, archived)
	if err != nil {
		return archived, err
	}

	h.logger.Debug().
		Int("archived", archived).
		Int("retention_days", settings.RetentionDays).
		Bool("daily_notes", settings.DailyNotes).
		Msg("Journal pass completed")
	return archived, nil
}

// noteSettingsChange audits a shift in effective housekeeping settings,
// which happens when the workspace's .mnema.yaml is added, edited, or
// removed between passes.
func (h *Housekeeper) noteSettingsChange(settings Settings) {
	h.mu.Lock()
	changed := settings != h.lastSettings
	h.lastSettings = settings
	h.mu.Unlock()

	if !changed {
		return
	}

	h.logger.Info().
		Int("retention_days", settings.RetentionDays).
		Bool("daily_notes", settings.DailyNotes).
		Msg("Workspace housekeeping settings changed")
	observability.RecordConfigAudit(context.Background(), "journal_settings", h.agentID, map[string]interface{}{
		"retention_days": settings.RetentionDays,
		"daily_notes":    settings.DailyNotes,
	})
}

func (h *Housekeeper) runPass(now time.Time, settings Settings) (int, error) {
	if err := ensureBaseLayout(h.root); err != nil {
		return 0, err
	}
	if settings.DailyNotes {
		if err := EnsureDailyNote(h.root, now); err != nil {
			return 0, err
		}
	}
	return sweepDailyNotes(h.root, settings.RetentionDays, now)
}
