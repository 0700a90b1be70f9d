package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/cache"
	"github.com/oggyb/meetbot/internal/config"
	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/events"
	"github.com/oggyb/meetbot/internal/logger"
	"github.com/oggyb/meetbot/internal/metrics"
	"github.com/oggyb/meetbot/internal/server"
	"github.com/oggyb/meetbot/internal/service/engine"
	"github.com/oggyb/meetbot/internal/service/roulette"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	// Events: pairing works without NATS, the front end just misses pushes.
	var publisher events.Publisher = events.Nop{}
	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL, natsCfg.Name = cfg.NATS.URL, cfg.NATS.Name
	if np, err := events.NewNATSPublisher(natsCfg, log.With("module", "events")); err != nil {
		log.Warn("nats unavailable, events disabled", "url", cfg.NATS.URL, "err", err)
	} else {
		publisher = np
		defer np.Close()
	}

	if cfg.App.Env == "development" {
		if err := db.SeedTestData(database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Inject logger into app context
	appCtx := app.New(cfg, database, redisCache, log, publisher)

	coord := roulette.NewCoordinator(appCtx, roulette.OptionsFromConfig(cfg))
	defer coord.Shutdown()
	if n, err := coord.Resume(ctx); err != nil {
		log.Error("failed to resume queue", "err", err)
	} else if n > 0 {
		log.Info("resumed queued users", "count", n)
	}

	registrars := []server.Registrar{
		engine.NewRegistrar(appCtx, coord),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		roulette.NewJanitor(coord).Run(gctx)
		return nil
	})

	g.Go(func() error {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("starting metrics server", "addr", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
		log.Info("starting gRPC server", "addr", addr)
		return server.StartGRPCServer(gctx, cfg, log, registrars...)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		return
	}
	log.Info("server stopped")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
