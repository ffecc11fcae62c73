// Package config provides YAML-based configuration loading for Siteboard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Siteboard configuration, loaded from siteboard.yaml.
type Config struct {
	Client    string          `yaml:"client"` // client/actor name stamped on outbox events
	Database  DatabaseConfig  `yaml:"database"`
	Feed      FeedConfig      `yaml:"feed"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Notify    NotifyConfig    `yaml:"notify"`
	Rules     []RuleConfig    `yaml:"rules"`
	Rows      []RowConfig     `yaml:"rows"`
}

// DatabaseConfig holds connection settings for the MySQL server.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// FeedConfig tunes the change-feed watcher and the orphan-event buffer.
type FeedConfig struct {
	PollIntervalSec   int    `yaml:"poll_interval_sec"`
	OrphanMaxAttempts int    `yaml:"orphan_max_attempts"`
	OrphanTTLSec      int    `yaml:"orphan_ttl_sec"`
	CompactSchedule   string `yaml:"compact_schedule"` // 5-field cron expression
	CompactKeep       int    `yaml:"compact_keep"`     // events retained per table
}

// PollInterval returns the watcher poll interval as a duration.
func (f FeedConfig) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalSec) * time.Second
}

// OrphanTTL returns how long an orphan event may wait for its parent.
func (f FeedConfig) OrphanTTL() time.Duration {
	return time.Duration(f.OrphanTTLSec) * time.Second
}

// DashboardConfig holds settings for the read-only HTTP dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig holds alert delivery settings. Empty tokens disable a channel.
type NotifyConfig struct {
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// RuleConfig seeds one magnet interaction rule.
type RuleConfig struct {
	Source     string `yaml:"source"`
	Target     string `yaml:"target"`
	CanAttach  bool   `yaml:"can_attach"`
	IsRequired bool   `yaml:"is_required"`
	MaxCount   int    `yaml:"max_count"`
}

// RowConfig seeds one drop rule: the resource types allowed in a row.
type RowConfig struct {
	Row     string   `yaml:"row"`
	Allowed []string `yaml:"allowed"`
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
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" && c.Client != "" {
		c.Database.Name = "siteboard_" + c.Client
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Feed.PollIntervalSec == 0 {
		c.Feed.PollIntervalSec = 3
	}
	if c.Feed.OrphanMaxAttempts == 0 {
		c.Feed.OrphanMaxAttempts = 5
	}
	if c.Feed.OrphanTTLSec == 0 {
		c.Feed.OrphanTTLSec = 120
	}
	if c.Feed.CompactSchedule == "" {
		c.Feed.CompactSchedule = "0 3 * * *"
	}
	if c.Feed.CompactKeep == 0 {
		c.Feed.CompactKeep = 1000
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	for i := range c.Rules {
		if c.Rules[i].MaxCount == 0 {
			c.Rules[i].MaxCount = 1
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Client == "" {
		errs = append(errs, "client is required")
	}
	for i, r := range c.Rules {
		if r.Source == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].source is required", i))
		}
		if r.Target == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].target is required", i))
		}
		if r.MaxCount < 0 {
			errs = append(errs, fmt.Sprintf("rules[%d].max_count must not be negative", i))
		}
	}
	for i, r := range c.Rows {
		if r.Row == "" {
			errs = append(errs, fmt.Sprintf("rows[%d].row is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
