package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("EARNTIME_DB", "")
	t.Setenv("EARNTIME_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.DatabasePath, cfg.DatabasePath)
	assert.Equal(t, 6, cfg.DayCutoffHour)
	assert.True(t, cfg.Tasks.EnforceRecurrenceCaps)
	assert.Equal(t, int64(15), cfg.Purchase.DefaultMinutes)
	assert.Equal(t, 5*time.Second, cfg.GetDecisionInterval())
	assert.Equal(t, 15*time.Minute, cfg.GetUsageInterval())
	assert.Equal(t, time.Minute, cfg.GetShortWindow())
	assert.Equal(t, 24*time.Hour, cfg.GetLongWindow())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Setenv("EARNTIME_DB", "")
	t.Setenv("EARNTIME_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database_path: /tmp/x.db
timezone: UTC
decision_interval: 2s
resolver:
  foreground_file: /run/fg
enforcer:
  command: ["pkill", "-f", "{package}"]
tasks:
  enforce_recurrence_caps: false
purchase:
  default_minutes: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Second, cfg.GetDecisionInterval())
	assert.Equal(t, "/run/fg", cfg.Resolver.ForegroundFile)
	assert.Equal(t, []string{"pkill", "-f", "{package}"}, cfg.Enforcer.Command)
	assert.False(t, cfg.Tasks.EnforceRecurrenceCaps)
	assert.Equal(t, int64(30), cfg.Purchase.DefaultMinutes)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 15*time.Minute, cfg.GetUsageInterval())
	assert.Equal(t, 6, cfg.DayCutoffHour)

	loc, err := cfg.GetLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decision_interval: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EARNTIME_DB", "/env/earntime.db")
	t.Setenv("EARNTIME_LOG_LEVEL", "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/earntime.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecisionInterval = "soon"
	cfg.UsageInterval = "-5m"
	assert.Equal(t, 5*time.Second, cfg.GetDecisionInterval())
	assert.Equal(t, 15*time.Minute, cfg.GetUsageInterval())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no database", func(c *Config) { c.DatabasePath = "" }},
		{"cutoff too high", func(c *Config) { c.DayCutoffHour = 24 }},
		{"cutoff zero", func(c *Config) { c.DayCutoffHour = 0 }},
		{"no default minutes", func(c *Config) { c.Purchase.DefaultMinutes = 0 }},
		{"unknown zone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("EARNTIME_DB", "")
	t.Setenv("EARNTIME_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.UsageInterval = "1m"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, loaded.GetUsageInterval())
}

func TestCalendarFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.DayCutoffHour = 4
	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.Equal(t, 4, cal.CutoffHour)
	assert.Equal(t, time.UTC, cal.Location)
}
