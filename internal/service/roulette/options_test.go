package roulette

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/meetbot/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Roulette.RetryDelay = 250 * time.Millisecond
	cfg.Roulette.MaxWait = -time.Second

	opts := OptionsFromConfig(cfg)

	assert.Equal(t, 250*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, 30*time.Second, opts.ClaimTTL)
	assert.Zero(t, opts.MaxWait)
	assert.Equal(t, 3, opts.MaxStoreFailures)
	assert.Equal(t, 15*time.Second, opts.JanitorInterval)
}

func TestLockName(t *testing.T) {
	assert.Equal(t, "roulette:user:42", LockName(42))
}
