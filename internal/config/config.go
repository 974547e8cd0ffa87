package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/battlewithbytes/migration-console/internal/table"
)

// Config represents the full console configuration written to config.yml.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Service  ServiceConfig  `yaml:"service"`
	Tables   TablesConfig   `yaml:"tables"`
	Filter   FilterConfig   `yaml:"filter"`
	Activity ActivityConfig `yaml:"activity"`
	DataDir  string         `yaml:"data_dir"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TLSSkipVerify  bool   `yaml:"tls_skip_verify"`
	TLSCACertPath  string `yaml:"tls_ca_cert,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ServiceConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

type TablesConfig struct {
	DefaultPerPage int `yaml:"default_per_page"`
}

type FilterConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

type ActivityConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Load reads and parses a config file from the given path. Keys absent from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Environment wins over the file for the secret.
	if tok := os.Getenv("MIGRATION_CONSOLE_TOKEN"); tok != "" {
		cfg.Backend.Token = tok
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and values are in range.
func (c *Config) Validate() error {
	// Backend
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL")
	}
	if c.Backend.TimeoutSeconds < 1 {
		return fmt.Errorf("backend.timeout_seconds must be >= 1")
	}

	// Service
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port must be between 1 and 65535")
	}
	if c.Service.BindAddress == "" {
		return fmt.Errorf("service.bind_address is required")
	}

	// Tables
	if !slices.Contains(table.PerPageOptions, c.Tables.DefaultPerPage) {
		return fmt.Errorf("tables.default_per_page must be one of %v", table.PerPageOptions)
	}

	// Filter
	if c.Filter.DebounceMS < 0 {
		return fmt.Errorf("filter.debounce_ms must be >= 0")
	}

	if c.Activity.RetentionDays < 0 {
		return fmt.Errorf("activity.retention_days must be >= 0")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	return nil
}

// ActivityDBPath is the path of the activity database.
func (c *Config) ActivityDBPath() string {
	return filepath.Join(c.DataDir, ActivityDBName)
}

// Save writes the config to the given path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// The file carries the backend token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Redacted returns a copy with the backend token masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Backend.Token != "" {
		cp.Backend.Token = "********"
	}
	return &cp
}
