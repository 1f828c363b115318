// Package config loads the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/earntime/internal/calendar"
	"github.com/sadopc/earntime/internal/store"
)

// Config holds all earntime settings.
type Config struct {
	DatabasePath     string `yaml:"database_path"`
	Timezone         string `yaml:"timezone"` // IANA name; empty means the system zone
	DayCutoffHour    int    `yaml:"day_cutoff_hour"`
	DecisionInterval string `yaml:"decision_interval"`
	UsageInterval    string `yaml:"usage_interval"`

	Resolver ResolverConfig `yaml:"resolver"`
	Enforcer EnforcerConfig `yaml:"enforcer"`
	Usage    UsageConfig    `yaml:"usage"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Purchase PurchaseConfig `yaml:"purchase"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ResolverConfig points at the file an OS agent keeps the foreground
// package id in.
type ResolverConfig struct {
	ForegroundFile string `yaml:"foreground_file"`
	ShortWindow    string `yaml:"short_window"`
	LongWindow     string `yaml:"long_window"`
}

// EnforcerConfig is the command run to hide an app. "{package}" in any
// argument is replaced with the package id. Empty disables enforcement.
type EnforcerConfig struct {
	Command []string `yaml:"command"`
	Timeout string   `yaml:"timeout"`
}

// UsageConfig points at the YAML file of cumulative minutes per package.
type UsageConfig struct {
	File string `yaml:"file"`
}

type TasksConfig struct {
	EnforceRecurrenceCaps bool `yaml:"enforce_recurrence_caps"`
}

type PurchaseConfig struct {
	DefaultMinutes int64 `yaml:"default_minutes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := configDir()
	return &Config{
		DatabasePath:     filepath.Join(dir, "earntime.db"),
		DayCutoffHour:    calendar.DefaultCutoffHour,
		DecisionInterval: "5s",
		UsageInterval:    "15m",
		Resolver: ResolverConfig{
			ForegroundFile: filepath.Join(dir, "foreground"),
			ShortWindow:    "60s",
			LongWindow:     "24h",
		},
		Enforcer: EnforcerConfig{
			Timeout: "10s",
		},
		Usage: UsageConfig{
			File: filepath.Join(dir, "usage.yaml"),
		},
		Tasks: TasksConfig{
			EnforceRecurrenceCaps: true,
		},
		Purchase: PurchaseConfig{
			DefaultMinutes: 15,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "earntime.log"),
		},
	}
}

func configDir() string {
	if p, err := store.DefaultDBPath(); err == nil {
		return filepath.Dir(p)
	}
	return "."
}

// DefaultPath returns ~/.config/earntime/config.yaml
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("EARNTIME_DB"); path != "" {
		c.DatabasePath = path
	}
	if level := os.Getenv("EARNTIME_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.DayCutoffHour < 1 || c.DayCutoffHour > 23 {
		return fmt.Errorf("day_cutoff_hour %d out of range 1-23", c.DayCutoffHour)
	}
	if c.Purchase.DefaultMinutes <= 0 {
		return fmt.Errorf("purchase.default_minutes must be positive")
	}
	if _, err := c.GetLocation(); err != nil {
		return err
	}
	return nil
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetDecisionInterval returns how often the blocking decision runs.
func (c *Config) GetDecisionInterval() time.Duration {
	return duration(c.DecisionInterval, 5*time.Second)
}

// GetUsageInterval returns how often usage is synced.
func (c *Config) GetUsageInterval() time.Duration {
	return duration(c.UsageInterval, 15*time.Minute)
}

func (c *Config) GetShortWindow() time.Duration {
	return duration(c.Resolver.ShortWindow, time.Minute)
}

func (c *Config) GetLongWindow() time.Duration {
	return duration(c.Resolver.LongWindow, 24*time.Hour)
}

func (c *Config) GetEnforcerTimeout() time.Duration {
	return duration(c.Enforcer.Timeout, 10*time.Second)
}

// GetLocation resolves Timezone, defaulting to the system zone.
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Calendar builds the wall-clock calendar the engines share.
func (c *Config) Calendar() (calendar.Calendar, error) {
	loc, err := c.GetLocation()
	if err != nil {
		return calendar.Calendar{}, err
	}
	return calendar.Calendar{Clock: time.Now, Location: loc, CutoffHour: c.DayCutoffHour}, nil
}
