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
	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, 8*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 25*time.Second, cfg.JS.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "config/sites", cfg.SitesDir)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.JS.Enabled)
}

func TestNewViperReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "flowbox.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  addr: \":9000\"\ncache:\n  ttl: 1m\nlogger:\n  format: json\n"), 0o600))
	t.Setenv("FLOWBOX_FETCH_TIMEOUT", "3s")
	t.Setenv("FLOWBOX_JS_ENABLED", "true")

	v, err := NewViper(file)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.JS.Enabled)
}

func TestNewViperMissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty_addr", func(c *Config) { c.Server.Addr = " " }},
		{"zero_fetch_timeout", func(c *Config) { c.Fetch.Timeout = 0 }},
		{"js_without_timeout", func(c *Config) { c.JS.Enabled = true; c.JS.Timeout = 0 }},
		{"negative_ttl", func(c *Config) { c.Cache.TTL = -time.Second }},
		{"bad_format", func(c *Config) { c.Logger.Format = "xml" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
