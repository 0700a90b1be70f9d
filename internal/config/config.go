package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type Config struct {
	App struct {
		Env string // development seeds demo data on boot
	}

	Log LogConfig

	DB struct {
		Driver   string // mysql | sqlite
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Metrics struct {
		Addr string
	}

	NATS struct {
		URL  string
		Name string
	}

	Browse struct {
		RadiusKM float64
	}

	Roulette struct {
		RetryDelay       time.Duration
		ClaimTTL         time.Duration
		MaxWait          time.Duration // 0 disables forced cancellation
		MaxStoreFailures int
		JanitorInterval  time.Duration
	}

	Lock struct {
		TTL  time.Duration
		Wait time.Duration
		Poll time.Duration
	}

	Session struct {
		TTL time.Duration
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.Env = strings.ToLower(getEnvDefault("APP_ENV", "production"))

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "meetbot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		switch cfg.DB.Driver {
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "meetbot.db")
		default:
			cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.User = getEnvDefault("DB_USER", "root")
			cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
			cfg.DB.Name = getEnvDefault("DB_NAME", "meetbot")

			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getIntDefault("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	cfg.Metrics.Addr = getEnvDefault("METRICS_ADDR", ":9090")

	cfg.NATS.URL = getEnvDefault("NATS_URL", "nats://localhost:4222")
	cfg.NATS.Name = getEnvDefault("NATS_NAME", "meetbot")

	cfg.Browse.RadiusKM = getFloatDefault("BROWSE_RADIUS_KM", 50)

	cfg.Roulette.RetryDelay = getDurationDefault("ROULETTE_RETRY_DELAY", 5*time.Second)
	cfg.Roulette.ClaimTTL = getDurationDefault("ROULETTE_CLAIM_TTL", 30*time.Second)
	cfg.Roulette.MaxWait = getDurationDefault("ROULETTE_MAX_WAIT", 0)
	cfg.Roulette.MaxStoreFailures = getIntDefault("ROULETTE_MAX_STORE_FAILURES", 3)
	cfg.Roulette.JanitorInterval = getDurationDefault("ROULETTE_JANITOR_INTERVAL", 15*time.Second)

	cfg.Lock.TTL = getDurationDefault("LOCK_TTL", 10*time.Second)
	cfg.Lock.Wait = getDurationDefault("LOCK_WAIT", 2*time.Second)
	cfg.Lock.Poll = getDurationDefault("LOCK_POLL", 20*time.Millisecond)

	cfg.Session.TTL = getDurationDefault("SESSION_TTL", 24*time.Hour)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getIntDefault(k string, def int) int {
	if n, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return n
	}
	return def
}

func getFloatDefault(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func getDurationDefault(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && d >= 0 {
		return d
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
