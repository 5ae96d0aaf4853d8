package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/atlas-api/internal/cache"
	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/logger"
	"github.com/dimitrije/atlas-api/internal/metrics"
	"github.com/dimitrije/atlas-api/internal/server"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/dimitrije/atlas-api/internal/xero"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	sweepInterval = time.Hour
	sweepLockTTL  = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction()})
	log := logger.Get()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	deps := server.Deps{
		DB:      db,
		Redis:   rdb,
		Metrics: metrics.New(prometheus.NewRegistry()),
	}
	if cfg.Xero.Configured() {
		deps.XeroAPI = xero.NewClient(cfg.Xero)
	} else {
		log.Warn().Msg("xero credentials missing, xero endpoints disabled")
	}

	app := server.New(cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runSweeps(sweepCtx, cache.NewLocker(rdb, "atlas"), app.Sessions, app.Xero)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// runSweeps drops expired sessions and stale OAuth states every hour. With
// several replicas behind one Redis only the lock holder sweeps.
func runSweeps(ctx context.Context, locker *cache.Locker, sessions *services.SessionService, xeroService *services.XeroService) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, locker, sessions, xeroService)
		}
	}
}

func sweep(ctx context.Context, locker *cache.Locker, sessions *services.SessionService, xeroService *services.XeroService) {
	log := logger.Get()

	token, err := services.GenerateToken(16)
	if err != nil {
		log.Error().Err(err).Msg("sweep: token generation failed")
		return
	}
	ok, release, err := locker.Acquire(ctx, "sweep", token, sweepLockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("sweep: lock unavailable")
		return
	}
	if !ok {
		log.Debug().Msg("sweep: held by another instance")
		return
	}
	defer func() { _ = release(context.Background()) }()

	if n, err := sessions.CleanupExpired(ctx); err != nil {
		log.Error().Err(err).Msg("sweep: session cleanup failed")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("sweep: expired sessions removed")
	}

	if n, err := xeroService.CleanupStates(ctx); err != nil {
		log.Error().Err(err).Msg("sweep: oauth state cleanup failed")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("sweep: stale oauth states removed")
	}
}
