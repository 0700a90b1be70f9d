package roulette

import (
	"time"

	"github.com/oggyb/meetbot/internal/config"
)

// Options tune the pairing loop.
type Options struct {
	RetryDelay       time.Duration // pause between attempts while queued
	ClaimTTL         time.Duration // claims older than this are stale
	MaxWait          time.Duration // 0 waits forever
	MaxStoreFailures int           // consecutive store errors before giving up
	JanitorInterval  time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		RetryDelay:       5 * time.Second,
		ClaimTTL:         30 * time.Second,
		MaxStoreFailures: 3,
		JanitorInterval:  15 * time.Second,
	}
}

// OptionsFromConfig reads the Roulette section, filling gaps with defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RetryDelay:       cfg.Roulette.RetryDelay,
		ClaimTTL:         cfg.Roulette.ClaimTTL,
		MaxWait:          cfg.Roulette.MaxWait,
		MaxStoreFailures: cfg.Roulette.MaxStoreFailures,
		JanitorInterval:  cfg.Roulette.JanitorInterval,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.RetryDelay <= 0 {
		o.RetryDelay = def.RetryDelay
	}
	if o.ClaimTTL <= 0 {
		o.ClaimTTL = def.ClaimTTL
	}
	if o.MaxWait < 0 {
		o.MaxWait = 0
	}
	if o.MaxStoreFailures <= 0 {
		o.MaxStoreFailures = def.MaxStoreFailures
	}
	if o.JanitorInterval <= 0 {
		o.JanitorInterval = def.JanitorInterval
	}
	return o
}
