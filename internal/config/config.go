// Package config loads the nightaudit YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/nightaudit/internal/logging"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// Environment variables that override file values.
const (
	EnvBaseURL = "NIGHTAUDIT_BASE_URL"
	EnvToken   = "NIGHTAUDIT_TOKEN"
	EnvTenant  = "NIGHTAUDIT_TENANT"
)

// API describes how to reach the PMS.
type API struct {
	BaseURL     string        `yaml:"base_url"`
	TenantID    string        `yaml:"tenant_id"`
	Token       string        `yaml:"token,omitempty"`
	TokenEnv    string        `yaml:"token_env,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	ReadRetries int           `yaml:"read_retries"`
}

// Workflow holds controller behaviour.
type Workflow struct {
	Ordering        string        `yaml:"ordering"`
	ChargeNoShowFee bool          `yaml:"charge_no_show_fee"`
	StepTimeout     time.Duration `yaml:"step_timeout"`
}

// Journal names the local step logs. Empty paths disable that journal.
type Journal struct {
	AuditLog  string `yaml:"audit_log"`
	HistoryDB string `yaml:"history_db"`
}

// Config is the full nightaudit configuration.
type Config struct {
	API       API      `yaml:"api"`
	Workflow  Workflow `yaml:"workflow"`
	Journal   Journal  `yaml:"journal"`
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"`
}

// Dir returns ~/.nightaudit, or "" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nightaudit")
}

// DefaultPath returns ~/.nightaudit/config.yaml.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	journal := func(name string) string {
		if dir == "" {
			return ""
		}
		return filepath.Join(dir, name)
	}
	return &Config{
		API: API{
			BaseURL:     "http://localhost:8080",
			Timeout:     30 * time.Second,
			ReadRetries: 2,
		},
		Workflow: Workflow{
			Ordering:    string(workflow.OrderingPermissive),
			StepTimeout: 2 * time.Minute,
		},
		Journal: Journal{
			AuditLog:  journal("audit.jsonl"),
			HistoryDB: journal("history.db"),
		},
		LogLevel:  logging.LevelInfo,
		LogFormat: logging.FormatText,
	}
}

// Load reads configuration from path. Empty path falls back to
// ~/.nightaudit/config.yaml. A missing file yields defaults; invalid YAML
// is an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Start with defaults, YAML overwrites only specified fields
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvTenant); v != "" {
		c.API.TenantID = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.API.Token = v
	}
}

// ResolveToken returns the bearer token: the literal token if set,
// otherwise the value of the token_env variable.
func (c *Config) ResolveToken() string {
	if c.API.Token != "" {
		return c.API.Token
	}
	if c.API.TokenEnv != "" {
		return os.Getenv(c.API.TokenEnv)
	}
	return ""
}

// Ordering returns the parsed ordering policy.
func (c *Config) Ordering() (workflow.Ordering, error) {
	return workflow.ParseOrdering(c.Workflow.Ordering)
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative"))
	}
	if c.API.ReadRetries < 0 {
		errs = append(errs, fmt.Errorf("api.read_retries must not be negative"))
	}
	if c.Workflow.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("workflow.step_timeout must not be negative"))
	}
	if _, err := c.Ordering(); err != nil {
		errs = append(errs, fmt.Errorf("workflow.ordering: %w", err))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Write marshals cfg to path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
