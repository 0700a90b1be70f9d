package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("BROWSE_RADIUS_KM", "")
	t.Setenv("ROULETTE_RETRY_DELAY", "")

	cfg := New()

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/meetbot")
	assert.Equal(t, 50.0, cfg.Browse.RadiusKM)
	assert.Equal(t, 5*time.Second, cfg.Roulette.RetryDelay)
	assert.Equal(t, time.Duration(0), cfg.Roulette.MaxWait)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_DSN", "")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("BROWSE_RADIUS_KM", "12.5")
	t.Setenv("ROULETTE_RETRY_DELAY", "250ms")
	t.Setenv("ROULETTE_MAX_WAIT", "2m")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("LOG_SOURCE", "yes")

	cfg := New()

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.DB.DSN)
	assert.Equal(t, 12.5, cfg.Browse.RadiusKM)
	assert.Equal(t, 250*time.Millisecond, cfg.Roulette.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.Roulette.MaxWait)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.True(t, cfg.Log.Source)
}

func TestNew_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BROWSE_RADIUS_KM", "-3")
	t.Setenv("ROULETTE_RETRY_DELAY", "soon")

	cfg := New()

	assert.Equal(t, 50.0, cfg.Browse.RadiusKM)
	assert.Equal(t, 5*time.Second, cfg.Roulette.RetryDelay)
}
