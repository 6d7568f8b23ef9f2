package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
)

// agentIDPattern restricts agent identifiers to filesystem-safe names.
var agentIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Config represents the main mnema configuration
type Config struct {
	// Agents
	Agents []AgentConfig `json:"agents" mapstructure:"agents"`

	// DefaultAgent overrides which agent handles requests without an agent id
	DefaultAgent string `json:"default_agent" mapstructure:"default_agent"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Workspace configuration
	Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace"`

	// Memory index configuration
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`

	// Gateway configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Journal configuration
	Journal JournalConfig `json:"journal" mapstructure:"journal"`
}

// AgentConfig represents one agent's workspace binding
type AgentConfig struct {
	ID        string `json:"id" mapstructure:"id"`
	Name      string `json:"name" mapstructure:"name"`
	Workspace string `json:"workspace" mapstructure:"workspace"`
	Default   bool   `json:"default" mapstructure:"default"`
}

// WorkspaceConfig holds workspace layout and watch settings
type WorkspaceConfig struct {
	// Root is the base directory for per-agent workspaces. Agents without
	// an explicit workspace live at <root>/<agent-id>.
	Root string `json:"root" mapstructure:"root"`

	WatchEnabled    bool `json:"watch_enabled" mapstructure:"watch_enabled"`
	WatchDebounceMs int  `json:"watch_debounce_ms" mapstructure:"watch_debounce_ms"`
}

// MemoryConfig holds memory index settings
type MemoryConfig struct {
	// SearchEnabled gates acquisition of the index catalog. Workspace
	// fallback stays available either way.
	SearchEnabled bool `json:"search_enabled" mapstructure:"search_enabled"`

	// IndexDir holds per-agent catalog databases (<index_dir>/<agent-id>.db).
	IndexDir string `json:"index_dir" mapstructure:"index_dir"`

	// ExtraRoots are additional directories indexed content may live under.
	ExtraRoots []string `json:"extra_roots" mapstructure:"extra_roots"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Port         int    `json:"port" mapstructure:"port"`
	Host         string `json:"host" mapstructure:"host"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// JournalConfig holds daily-note and retention settings
type JournalConfig struct {
	DailyNotes    bool   `json:"daily_notes" mapstructure:"daily_notes"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule"` // cron expression
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agents: []AgentConfig{
			{
				ID:      "main",
				Name:    "Main Agent",
				Default: true,
			},
		},
		Workspace: WorkspaceConfig{
			WatchEnabled:    true,
			WatchDebounceMs: 100,
		},
		Memory: MemoryConfig{
			SearchEnabled: true,
		},
		Gateway: GatewayConfig{
			Enabled:      false,
			Port:         8080,
			Host:         "127.0.0.1",
			SharedSecret: "",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Journal: JournalConfig{
			DailyNotes:    true,
			RetentionDays: 30,
			SweepSchedule: "0 0 * * *",
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}

	seen := make(map[string]bool, len(c.Agents))
	defaults := 0
	for i, agent := range c.Agents {
		if agent.ID == "" {
			return fmt.Errorf("agent %d: ID is required", i)
		}
		if !agentIDPattern.MatchString(agent.ID) {
			return fmt.Errorf("agent %s: ID may only contain letters, digits, '.', '_' and '-'", agent.ID)
		}
		if seen[agent.ID] {
			return fmt.Errorf("agent %s: duplicate ID", agent.ID)
		}
		seen[agent.ID] = true
		if agent.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("at most one agent may be marked default")
	}

	if c.DefaultAgent != "" && !seen[c.DefaultAgent] {
		return fmt.Errorf("default_agent %s does not match any configured agent", c.DefaultAgent)
	}

	if c.Gateway.Enabled {
		if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
			return fmt.Errorf("gateway port must be between 1 and 65535, got %d", c.Gateway.Port)
		}
		if c.Gateway.SharedSecret == "" {
			return fmt.Errorf("gateway shared_secret is required when the gateway is enabled")
		}
		if len(c.Gateway.SharedSecret) < 16 {
			return fmt.Errorf("gateway shared_secret must be at least 16 characters")
		}
	}

	if c.Journal.RetentionDays < 0 {
		return fmt.Errorf("journal retention_days must be >= 0, got %d", c.Journal.RetentionDays)
	}

	return nil
}

// DefaultAgentID resolves the agent that handles requests without an
// explicit agent id.
func (c *Config) DefaultAgentID() string {
	if c.DefaultAgent != "" {
		return c.DefaultAgent
	}
	for _, agent := range c.Agents {
		if agent.Default {
			return agent.ID
		}
	}
	if len(c.Agents) > 0 {
		return c.Agents[0].ID
	}
	return "main"
}

// AgentByID looks up a configured agent.
func (c *Config) AgentByID(id string) (*AgentConfig, bool) {
	for i := range c.Agents {
		if c.Agents[i].ID == id {
			return &c.Agents[i], true
		}
	}
	return nil, false
}

// AgentWorkspaceDir resolves the workspace directory for an agent. Agents
// with an explicit workspace use it verbatim; others live under the
// workspace root.
func (c *Config) AgentWorkspaceDir(agentID string) string {
	if agent, ok := c.AgentByID(agentID); ok && agent.Workspace != "" {
		return agent.Workspace
	}
	return filepath.Join(c.workspaceRoot(), agentID)
}

// IndexDBPath resolves the catalog database path for an agent.
func (c *Config) IndexDBPath(agentID string) string {
	indexDir := c.Memory.IndexDir
	if indexDir == "" {
		indexDir = filepath.Join(c.DataDir, "index")
	}
	return filepath.Join(indexDir, agentID+".db")
}

// SourceRoots lists the directories indexed content for an agent may live
// under, workspace first.
func (c *Config) SourceRoots(agentID string) []string {
	roots := []string{c.AgentWorkspaceDir(agentID)}
	roots = append(roots, c.Memory.ExtraRoots...)
	return roots
}

func (c *Config) workspaceRoot() string {
	if c.Workspace.Root != "" {
		return c.Workspace.Root
	}
	return filepath.Join(c.DataDir, "workspaces")
}
