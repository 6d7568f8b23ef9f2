package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard five-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAgentID validates an agent identifier
func (v *Validator) ValidateAgentID(id string) error {
	if id == "" {
		return fmt.Errorf("agent ID cannot be empty")
	}
	if !agentIDPattern.MatchString(id) {
		return fmt.Errorf("invalid agent ID %q (letters, digits, '.', '_' and '-' only)", id)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateSweepSchedule validates a journal sweep cron expression
func (v *Validator) ValidateSweepSchedule(expr string) error {
	if expr == "" {
		return nil // Use default
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return nil
}

// ValidateSharedSecret checks gateway secret strength. The gateway never
// runs without one; every client authenticates against it.
func (v *Validator) ValidateSharedSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("gateway shared secret is required")
	}
	if len(secret) < 16 {
		return fmt.Errorf("gateway shared secret must be at least 16 characters")
	}
	return nil
}

// ValidateRetentionDays validates journal retention
func (v *Validator) ValidateRetentionDays(days int) error {
	if days < 0 {
		return fmt.Errorf("retention_days must be >= 0, got %d", days)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Validate agents
	seen := make(map[string]bool, len(cfg.Agents))
	for i, agent := range cfg.Agents {
		if err := v.ValidateAgentID(agent.ID); err != nil {
			errors = append(errors, fmt.Errorf("agent %d: %w", i, err))
			continue
		}
		if seen[agent.ID] {
			errors = append(errors, fmt.Errorf("agent %d: duplicate agent ID %q", i, agent.ID))
		}
		seen[agent.ID] = true
	}

	if cfg.DefaultAgent != "" {
		if _, ok := cfg.AgentByID(cfg.DefaultAgent); !ok {
			errors = append(errors, fmt.Errorf("default_agent %s does not match any configured agent", cfg.DefaultAgent))
		}
	}

	// Validate gateway
	if cfg.Gateway.Enabled {
		if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
			errors = append(errors, fmt.Errorf("gateway port must be between 1 and 65535, got %d", cfg.Gateway.Port))
		}
		if err := v.ValidateSharedSecret(cfg.Gateway.SharedSecret); err != nil {
			errors = append(errors, err)
		}
	}

	// Validate journal
	if err := v.ValidateRetentionDays(cfg.Journal.RetentionDays); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateSweepSchedule(cfg.Journal.SweepSchedule); err != nil {
		errors = append(errors, err)
	}

	// Validate workspace
	if cfg.Workspace.WatchDebounceMs < 0 {
		errors = append(errors, fmt.Errorf("workspace watch_debounce_ms must be >= 0"))
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
