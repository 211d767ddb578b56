// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchboard configuration, loaded from
// switchboard.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Notify     NotifyConfig     `yaml:"notify"`
	Boards     []BoardConfig    `yaml:"boards"`
	Rules      []RuleConfig     `yaml:"rules"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DBConfig holds connection settings for the MySQL-protocol SQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// DispatcherConfig tunes the change fan-out layer.
type DispatcherConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// ArchiveConfig controls the done-card archival sweep.
type ArchiveConfig struct {
	AfterDays int    `yaml:"after_days"`
	Schedule  string `yaml:"schedule"` // 5-field cron expression
}

// NotifyConfig holds chat notifier credentials. Empty blocks disable the
// corresponding adapter.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack notifier settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord notifier settings.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// BoardConfig seeds a board with its columns at migrate time.
type BoardConfig struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Visibility    string   `yaml:"visibility"`
	CardType      string   `yaml:"card_type"`
	DefaultTeamID string   `yaml:"default_team_id"`
	Columns       []string `yaml:"columns"`
}

// RuleConfig seeds a routing rule at migrate time. Board and column targets
// are referenced by name and resolved during seeding.
type RuleConfig struct {
	Name           string `yaml:"name"`
	Channel        string `yaml:"channel"`
	ConditionType  string `yaml:"condition_type"`
	ConditionValue string `yaml:"condition_value"`
	TargetTeamID   string `yaml:"target_team_id"`
	TargetBoard    string `yaml:"target_board"`
	TargetColumn   string `yaml:"target_column"`
	Priority       int    `yaml:"priority"`
	Enabled        *bool  `yaml:"enabled"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "switchboard"
	}
	if c.Dispatcher.DebounceMS == 0 {
		c.Dispatcher.DebounceMS = 1000
	}
	if c.Archive.AfterDays == 0 {
		c.Archive.AfterDays = 30
	}
	if c.Archive.Schedule == "" {
		c.Archive.Schedule = "0 3 * * *"
	}
	for i := range c.Boards {
		if c.Boards[i].Visibility == "" {
			c.Boards[i].Visibility = "org"
		}
		if c.Boards[i].CardType == "" {
			c.Boards[i].CardType = "task"
		}
		if len(c.Boards[i].Columns) == 0 {
			c.Boards[i].Columns = []string{"Intake", "In Progress", "Done"}
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	for i, b := range c.Boards {
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("boards[%d].name is required", i))
		}
		if b.Visibility != "org" && b.Visibility != "team" {
			errs = append(errs, fmt.Sprintf("boards[%d].visibility must be org or team", i))
		}
	}
	for i, r := range c.Rules {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].name is required", i))
		}
		if r.ConditionType == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].condition_type is required", i))
		}
		if r.TargetTeamID == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].target_team_id is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
