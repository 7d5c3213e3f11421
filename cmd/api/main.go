package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godlykids/engagement-analytics/internal/analytics"
	"github.com/godlykids/engagement-analytics/internal/cache"
	"github.com/godlykids/engagement-analytics/internal/config"
	"github.com/godlykids/engagement-analytics/internal/httpserver"
	"github.com/godlykids/engagement-analytics/internal/logger"
	"github.com/godlykids/engagement-analytics/internal/store"
)

// purgeInterval is how often expired play events are swept. The TTL is the
// one hard cutoff on stored play data; trending windows are additionally
// clamped at the query façade, so purge lag never widens a window.
const purgeInterval = time.Hour

// main boots the service: config → logger → DB → schema → purger → HTTP server.
func main() {
	// Load runtime config from environment (DB_URL, API_KEYS, ...).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		zlog.Fatal("db connect failed", "error", err)
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		zlog.Fatal("schema apply failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Redis read cache; a missing REDIS_URL disables it.
	ca, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Fatal("redis config invalid", "error", err)
	}
	defer ca.Close()
	if ca.Enabled() {
		zlog.Info("overview read cache enabled", "ttl", cfg.OverviewCacheTTL)
	}

	go runPlayEventPurge(ctx, zlog, db)

	router := httpserver.NewRouter(cfg, zlog, db, ca)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown incomplete", "error", err)
	}
}

// runPlayEventPurge sweeps expired play events at boot and hourly until ctx
// is cancelled. Purging is a storage concern, not an aggregation daemon:
// every aggregate stays a pure function of whatever rows remain.
func runPlayEventPurge(ctx context.Context, zlog *logger.Logger, db *store.PostgresStore) {
	zlog = zlog.With("task", "play_event_purge")

	purge := func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -analytics.PlayEventRetentionDays)
		purgeCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		removed, err := db.PurgeExpiredPlayEvents(purgeCtx, cutoff)
		if err != nil {
			zlog.Error("purge failed", "error", err)
			return
		}
		if removed > 0 {
			zlog.Info("expired play events removed", "count", removed, "cutoff", cutoff)
		}
	}

	purge()
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
