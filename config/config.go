// Package config loads the fleet engine server configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/robfig/cron/v3"
	"github.com/warp/fleet-engine/fleet"
)

// Config is the root of config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"` // CORS; empty means local dev servers
}

// DatabaseConfig points at the sqlite mirror. ":memory:" is allowed.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UpstreamConfig describes the REST backend the mirror is synced from.
type UpstreamConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"` // Go duration, e.g. "10s"
}

type SyncConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@every 5m"
	OnStart  bool   `yaml:"onStart"`
}

type LogConfig struct {
	Env   string `yaml:"env"`   // "dev"/"local" -> colored text, else JSON
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// EngineConfig holds the status sets applied when a request does not
// supply its own.
type EngineConfig struct {
	BlockingStatuses  []string `yaml:"blockingStatuses"`
	CountableStatuses []string `yaml:"countableStatuses"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "./data/fleet.db"},
		Upstream: UpstreamConfig{Timeout: "10s"},
		Sync:     SyncConfig{Schedule: "@every 5m", OnStart: true},
		Log:      LogConfig{Env: "dev", Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// FLEET_UPSTREAM_TOKEN overrides the upstream token.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	}

	if val := os.Getenv("FLEET_UPSTREAM_TOKEN"); val != "" {
		cfg.Upstream.Token = val
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := c.UpstreamTimeout(); err != nil {
		return err
	}
	if c.SyncEnabled() {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("sync.schedule: %w", err)
		}
	}
	for _, list := range [][]string{c.Engine.BlockingStatuses, c.Engine.CountableStatuses} {
		for _, s := range list {
			if !validStatus(s) {
				return fmt.Errorf("unknown booking status %q", s)
			}
		}
	}
	return nil
}

// SyncEnabled is true when there is an upstream to sync from.
func (c *Config) SyncEnabled() bool {
	return c.Upstream.BaseURL != "" && c.Sync.Schedule != ""
}

func (c *Config) UpstreamTimeout() (time.Duration, error) {
	if c.Upstream.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Upstream.Timeout)
	if err != nil {
		return 0, fmt.Errorf("upstream.timeout: %w", err)
	}
	return d, nil
}

// Blocking returns the configured blocking statuses (nil means default).
func (c *Config) Blocking() []fleet.BookingStatus { return toStatuses(c.Engine.BlockingStatuses) }

// Countable returns the configured revenue statuses (nil means default).
func (c *Config) Countable() []fleet.BookingStatus { return toStatuses(c.Engine.CountableStatuses) }

func toStatuses(in []string) []fleet.BookingStatus {
	if len(in) == 0 {
		return nil
	}
	out := make([]fleet.BookingStatus, len(in))
	for i, s := range in {
		out[i] = fleet.BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}

func validStatus(s string) bool {
	switch fleet.BookingStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case fleet.BookingPending, fleet.BookingConfirmed, fleet.BookingActive, fleet.BookingCompleted, fleet.BookingCancelled:
		return true
	}
	return false
}
