package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clinicops/clinic-backoffice/internal/api"
	"github.com/clinicops/clinic-backoffice/internal/appointment"
	"github.com/clinicops/clinic-backoffice/internal/availability"
	"github.com/clinicops/clinic-backoffice/internal/config"
	"github.com/clinicops/clinic-backoffice/internal/db"
	"github.com/clinicops/clinic-backoffice/internal/doctor"
	"github.com/clinicops/clinic-backoffice/internal/notify"
	"github.com/clinicops/clinic-backoffice/internal/observability/metrics"
	"github.com/clinicops/clinic-backoffice/internal/redisclient"
	"github.com/clinicops/clinic-backoffice/internal/report"
)

var version = "dev"

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

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version))

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	feed := notify.NewRedisFeed(rdb, cfg.FeedChannelFmt, logger)
	locker := redisclient.NewRedisAppointmentLocker(rdb, cfg.CompleteLockTTL)
	suppressor := notify.NewRedisSuppressor(rdb, cfg.SuppressTTL, logger)

	availabilitySvc := availability.NewService(availability.NewPgRepository(pgPool), logger)
	appointmentSvc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		locker,
		availabilitySvc,
		feed,
		lifecycleMetrics,
		logger,
	)
	doctorSvc := doctor.NewService(doctor.NewPgRepository(pgPool), lifecycleMetrics, logger)
	reportSvc := report.NewService(report.NewPgRepository(pgPool), rdb, cfg.StatsCacheTTL, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointmentSvc,
		Availability: availabilitySvc,
		Doctors:      doctorSvc,
		Reports:      reportSvc,
		Suppressor:   suppressor,
		PgPool:       pgPool,
		Redis:        rdb,
		Registry:     registry,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
