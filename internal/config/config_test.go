package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Scraper.Concurrency)
	assert.Equal(t, 75, cfg.Scraper.MaxProducts)
	assert.Equal(t, 600*time.Millisecond, cfg.Scraper.DelayMin)
	assert.Equal(t, 1400*time.Millisecond, cfg.Scraper.DelayMax)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "exports", cfg.Session.ExportDir)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_CONCURRENCY", "8")
	t.Setenv("SCRAPER_DELAY_MIN", "100ms")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Scraper.Concurrency)
	assert.Equal(t, 100*time.Millisecond, cfg.Scraper.DelayMin)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SCRAPER_CONCURRENCY", "many")
	t.Setenv("SESSION_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scraper.Concurrency)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Scraper.Concurrency = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Scraper.MaxProducts = -1
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Scraper.DelayMin = 2 * time.Second
	bad.Scraper.DelayMax = time.Second
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Session.TTL = time.Second
	assert.Error(t, bad.Validate())
}
