package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 24*time.Hour, cfg.Cache.ScreeningTTL)
	assert.Equal(t, time.Hour, cfg.Cache.ConfirmationTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ScreeningSweep)
	assert.Equal(t, time.Minute, cfg.Cache.ConfirmationSweep)
	assert.Equal(t, 299, cfg.Search.CandidateCount)
	assert.Equal(t, 4, cfg.Search.WindowSize)
	assert.Equal(t, 202, cfg.Screening.SuccessStatus)
	assert.Equal(t, 3, cfg.AutoSearch.BatchSize)
	assert.Equal(t, 4*time.Hour, cfg.AutoSearch.Cooldown)
	assert.Equal(t, 720*time.Hour, cfg.AutoSearch.Retention)
	assert.InDelta(t, 0.99, cfg.Captcha.Threshold, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		cfg, err := LoadFrom("")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := []byte("search:\n  window_size: 6\ncache:\n  confirmation_ttl: 30m\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		cfg, err := LoadFrom(path)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Search.WindowSize)
		assert.Equal(t, 30*time.Minute, cfg.Cache.ConfirmationTTL)
		assert.Equal(t, 299, cfg.Search.CandidateCount)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("search:\n  window_size: 6\n"), 0o600))
		t.Setenv("IINFINDER_SEARCH__WINDOW_SIZE", "2")
		t.Setenv("IINFINDER_AUTOSEARCH__COOLDOWN", "90m")
		t.Setenv("IINFINDER_NOTIFY__DRIVER", "kafka")
		t.Setenv("IINFINDER_NOTIFY__KAFKA_BROKERS", "a:9092, b:9092")

		cfg, err := LoadFrom(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Search.WindowSize)
		assert.Equal(t, 90*time.Minute, cfg.AutoSearch.Cooldown)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Notify.KafkaBrokers)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown database driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }},
		{name: "redis backend without url", mutate: func(c *Config) { c.Cache.Backend = "redis" }},
		{name: "zero sweep interval", mutate: func(c *Config) { c.Cache.ScreeningSweep = 0 }},
		{name: "relative upstream url", mutate: func(c *Config) { c.Screening.URL = "/checkIinBin" }},
		{name: "webhook without url", mutate: func(c *Config) { c.Notify.Driver = "webhook" }},
		{name: "candidate count too large", mutate: func(c *Config) { c.Search.CandidateCount = 1000 }},
		{name: "unknown notify driver", mutate: func(c *Config) { c.Notify.Driver = "sms" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
