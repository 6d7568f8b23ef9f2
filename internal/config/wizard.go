package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== Mnema Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Default agent
	fmt.Println("Agents:")
	fmt.Println()

	for {
		fmt.Print("Default agent ID [main]: ")
		id, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if id == "" {
			break
		}

		if err := validator.ValidateAgentID(id); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		cfg.Agents = []AgentConfig{{ID: id, Name: id, Default: true}}
		break
	}

	fmt.Println()

	// Workspace root
	fmt.Println("Workspaces:")
	fmt.Print("Workspace root directory (press Enter for <data-dir>/workspaces): ")
	root, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if root != "" {
		cfg.Workspace.Root = root
	}

	fmt.Println()

	// Journal
	fmt.Println("Journal:")
	fmt.Print("Create daily notes automatically? (y/n) [y]: ")
	daily, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Journal.DailyNotes = daily == "" || strings.ToLower(daily) == "y"

	if cfg.Journal.DailyNotes {
		fmt.Print("Retention days before daily notes are archived [30]: ")
		days, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if days != "" {
			n, err := strconv.Atoi(days)
			if err != nil || n < 0 {
				fmt.Println("Warning: invalid retention, using default (30)")
			} else {
				cfg.Journal.RetentionDays = n
			}
		}
	}

	fmt.Println()

	// Gateway
	fmt.Println("Gateway:")
	fmt.Print("Enable the WebSocket gateway? (y/n) [n]: ")
	enable, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if strings.ToLower(enable) == "y" {
		cfg.Gateway.Enabled = true

		fmt.Print("Gateway port [8080]: ")
		port, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if port != "" {
			n, err := strconv.Atoi(port)
			if err != nil || n <= 0 || n > 65535 {
				fmt.Println("Warning: invalid port, using default (8080)")
			} else {
				cfg.Gateway.Port = n
			}
		}

		for {
			fmt.Print("Shared secret (16+ characters): ")
			secret, err := w.readLine()
			if err != nil {
				return nil, err
			}

			if err := validator.ValidateSharedSecret(secret); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}

			cfg.Gateway.SharedSecret = secret
			break
		}
	}

	fmt.Println()

	// Log Level
	fmt.Println("Logging:")
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
