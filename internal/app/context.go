package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/meetbot/internal/cache"
	"github.com/oggyb/meetbot/internal/config"
	"github.com/oggyb/meetbot/internal/events"
	"github.com/oggyb/meetbot/internal/lock"
	"github.com/oggyb/meetbot/internal/session"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Locker     *lock.Locker
	Sessions   *session.Store
	Events     events.Publisher
}

// New creates a new AppContext. The locker and session store share the
// Redis client; a nil publisher drops events.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, pub events.Publisher) *AppContext {
	if pub == nil {
		pub = events.Nop{}
	}
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Locker: lock.NewLocker(rdb.Client, lock.Options{
			TTL:  cfg.Lock.TTL,
			Wait: cfg.Lock.Wait,
			Poll: cfg.Lock.Poll,
		}),
		Sessions: session.NewStore(rdb.Client, cfg.Session.TTL),
		Events:   pub,
	}
}
