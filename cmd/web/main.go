package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"github.com/AdamBeresnev/esports-bracket/internal/cache"
	"github.com/AdamBeresnev/esports-bracket/internal/config"
	"github.com/AdamBeresnev/esports-bracket/internal/db"
	"github.com/AdamBeresnev/esports-bracket/internal/live"
	"github.com/AdamBeresnev/esports-bracket/internal/logging"
	"github.com/AdamBeresnev/esports-bracket/internal/metrics"
	"github.com/AdamBeresnev/esports-bracket/internal/service"
	"github.com/AdamBeresnev/esports-bracket/internal/store"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	hub := live.NewHub(logger)

	opts := []service.Option{
		service.WithNotifier(hub),
		service.WithMetrics(metrics.NewPrometheus(registry)),
		service.WithDefaults(cfg.Bracket),
		service.WithLogger(logger),
	}
	if cfg.RedisURL != "" {
		bracketCache, err := cache.NewFromURL(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("bracket cache disabled", "error", err)
		} else {
			defer bracketCache.Close()
			opts = append(opts, service.WithCache(bracketCache))
		}
	}

	app := &application{
		db:       database,
		brackets: service.NewBracketService(database, store.NewBracketStore(database), bracket.NewEngine(clockwork.NewRealClock()), opts...),
		hub:      hub,
		registry: registry,
		config:   cfg,
		logger:   logger,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gCtx)
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
