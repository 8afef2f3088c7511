// Package config loads toolgate configuration.
//
// Sources are layered: built-in defaults, then an optional YAML file, then
// TOOLGATE_* environment variables. Sections that belong to other packages
// (logging, telemetry) are decoded on demand with Section so their own
// defaults stay in one place.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/ratelimit"
	"github.com/knadh/koanf/v2"
)

// Config holds the toolgate configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	HTTP       HTTPConfig       `koanf:"http"`
	Governance GovernanceConfig `koanf:"governance"`
	GitHub     GitHubConfig     `koanf:"github"`

	// k retains every loaded key for Section.
	k *koanf.Koanf
}

// ServerConfig describes the MCP server implementation.
type ServerConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// HTTPConfig controls the admin HTTP server.
type HTTPConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// GovernanceConfig holds rate-limit settings for governed tools.
// MaxCalls and TimeWindow form the default policy; Policies overrides it per
// tool name.
type GovernanceConfig struct {
	MaxCalls   int                     `koanf:"max_calls" json:"max_calls"`
	TimeWindow Duration                `koanf:"time_window" json:"time_window"`
	Mode       string                  `koanf:"mode" json:"mode"`
	Policies   map[string]PolicyConfig `koanf:"policies" json:"policies,omitempty"`
}

// PolicyConfig is one per-tool override.
type PolicyConfig struct {
	MaxCalls   int      `koanf:"max_calls" json:"max_calls"`
	TimeWindow Duration `koanf:"time_window" json:"time_window"`
}

// GitHubConfig configures the upstream GitHub REST client.
type GitHubConfig struct {
	Token             Secret   `koanf:"token"`
	BaseURL           string   `koanf:"base_url"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Burst             int      `koanf:"burst"`
	Timeout           Duration `koanf:"timeout"`
	// MaxRetries bounds retries of idempotent reads on 429/5xx.
	MaxRetries        int      `koanf:"max_retries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "toolgate",
			Version: "0.1.0",
		},
		HTTP: HTTPConfig{
			Enabled:         false,
			Host:            "127.0.0.1",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Governance: GovernanceConfig{
			MaxCalls:   ratelimit.DefaultMaxCalls,
			TimeWindow: Duration(ratelimit.DefaultTimeWindow),
			Mode:       string(ratelimit.BackoffSleepOnce),
		},
		GitHub: GitHubConfig{
			BaseURL:           "https://api.github.com/",
			RequestsPerSecond: 10,
			Burst:             5,
			Timeout:           Duration(30 * time.Second),
			MaxRetries:        2,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.HTTP.Enabled {
		if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
			return fmt.Errorf("invalid http.port: %d (must be 1-65535)", c.HTTP.Port)
		}
		if c.HTTP.ShutdownTimeout <= 0 {
			return errors.New("http.shutdown_timeout must be positive")
		}
	}
	if _, _, _, err := c.Governance.Resolve(); err != nil {
		return fmt.Errorf("governance: %w", err)
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github.requests_per_second must be >= 0, got %v", c.GitHub.RequestsPerSecond)
	}
	if c.GitHub.RequestsPerSecond > 0 && c.GitHub.Burst < 1 {
		return fmt.Errorf("github.burst must be >= 1 when pacing is enabled, got %d", c.GitHub.Burst)
	}
	if c.GitHub.Timeout <= 0 {
		return errors.New("github.timeout must be positive")
	}
	if c.GitHub.MaxRetries < 0 {
		return fmt.Errorf("github.max_retries must be >= 0, got %d", c.GitHub.MaxRetries)
	}
	return nil
}

// Resolve converts the section into rate-limit policies and a back-off mode.
func (g GovernanceConfig) Resolve() (ratelimit.Policy, map[string]ratelimit.Policy, ratelimit.Mode, error) {
	def := ratelimit.Policy{MaxCalls: g.MaxCalls, TimeWindow: g.TimeWindow.Duration()}
	if err := def.Validate(); err != nil {
		return ratelimit.Policy{}, nil, "", fmt.Errorf("default policy: %w", err)
	}

	mode, err := ratelimit.ParseMode(g.Mode)
	if err != nil {
		return ratelimit.Policy{}, nil, "", err
	}

	overrides := make(map[string]ratelimit.Policy, len(g.Policies))
	for tool, pc := range g.Policies {
		p := ratelimit.Policy{MaxCalls: pc.MaxCalls, TimeWindow: pc.TimeWindow.Duration()}
		if err := p.Validate(); err != nil {
			return ratelimit.Policy{}, nil, "", fmt.Errorf("policy %q: %w", tool, err)
		}
		overrides[tool] = p
	}
	return def, overrides, mode, nil
}

// Addr returns the admin server listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// Section decodes the loaded keys under path into out. Fields absent from
// the file and environment keep the values already in out.
func (c *Config) Section(path string, out any) error {
	if c.k == nil {
		return nil
	}
	if err := c.k.Unmarshal(path, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
