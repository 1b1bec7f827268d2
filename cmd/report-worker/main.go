package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clinicops/clinic-backoffice/internal/config"
	"github.com/clinicops/clinic-backoffice/internal/db"
	"github.com/clinicops/clinic-backoffice/internal/notify"
	"github.com/clinicops/clinic-backoffice/internal/redisclient"
	"github.com/clinicops/clinic-backoffice/internal/report"
)

func newLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := newLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("report-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.StatsInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	svc := report.NewService(report.NewPgRepository(pgPool), rdb, cfg.StatsCacheTTL, logger)
	feed := notify.NewRedisFeed(rdb, cfg.FeedChannelFmt, logger)
	suppressor := notify.NewRedisSuppressor(rdb, cfg.SuppressTTL, logger)

	w := &worker{
		svc:        svc,
		feed:       feed,
		suppressor: suppressor,
		logger:     logger,
		watched:    make(map[uuid.UUID]struct{}),
	}

	// Run once at startup so dashboards are warm before the first tick.
	w.refreshAll(rootCtx)

	ticker := time.NewTicker(cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping report worker")
			w.wg.Wait()
			return
		case <-ticker.C:
			w.refreshAll(rootCtx)
		}
	}
}

type worker struct {
	svc        *report.Service
	feed       notify.Feed
	suppressor notify.Suppressor
	logger     *zap.Logger

	wg      sync.WaitGroup
	watched map[uuid.UUID]struct{}
}

// refreshAll recomputes today's cached stats for every clinic not currently
// frozen, and makes sure each known clinic has a change-feed watcher so
// lifecycle transitions refresh the cache between ticks.
func (w *worker) refreshAll(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	clinics, err := w.svc.ListClinicIDs(runCtx)
	if err != nil {
		w.logger.Error("list clinics failed", zap.Error(err))
		return
	}

	start := time.Now()
	refreshed := 0
	for _, clinicID := range clinics {
		w.watch(ctx, clinicID)

		if w.suppressor.Suppressed(runCtx, clinicID) {
			continue
		}
		if _, err := w.svc.RefreshDailyStats(runCtx, clinicID, time.Now().UTC()); err != nil {
			w.logger.Error("stats refresh failed",
				zap.String("clinic_id", clinicID.String()), zap.Error(err))
			continue
		}
		refreshed++
	}

	w.logger.Debug("stats refresh pass complete",
		zap.Int("clinics", len(clinics)),
		zap.Int("refreshed", refreshed),
		zap.Duration("took", time.Since(start)))
}

func (w *worker) watch(ctx context.Context, clinicID uuid.UUID) {
	if _, ok := w.watched[clinicID]; ok {
		return
	}
	w.watched[clinicID] = struct{}{}

	events, err := w.feed.Subscribe(ctx, clinicID)
	if err != nil {
		w.logger.Warn("change feed subscribe failed, relying on ticker only",
			zap.String("clinic_id", clinicID.String()), zap.Error(err))
		delete(w.watched, clinicID)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for ev := range events {
			if w.suppressor.Suppressed(ctx, ev.ClinicID) {
				continue
			}
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			_, err := w.svc.RefreshDailyStats(refreshCtx, ev.ClinicID, time.Now().UTC())
			cancel()
			if err != nil {
				w.logger.Warn("event-driven stats refresh failed",
					zap.String("clinic_id", ev.ClinicID.String()), zap.Error(err))
			}
		}
	}()
}
