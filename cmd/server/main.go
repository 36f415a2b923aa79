package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
	"immigration/internal/handlers"
	"immigration/internal/metrics"
	"immigration/internal/middleware"
	"immigration/internal/notify"
	"immigration/internal/repo"
	"immigration/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfg := config.NewConfig()

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Debugw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		sugar.Fatalw("failed to get sql.DB", "error", err)
	}
	defer sqlDB.Close()

	docs := repo.NewDocumentRepository(gormDB)
	forms := repo.NewFormRepository(gormDB)
	events := repo.NewEventRepository(gormDB)
	photos := bootstrap.PhotoStore(cfg, repo.NewBlobRepository(gormDB))

	sinks := []notify.Sink{notify.NewLogSink(sugar), notify.NewDBSink(events)}
	if cfg.RedisURL != "" {
		client, err := notify.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Warnw("redis notifications disabled", "error", err)
		} else {
			defer client.Close()
			sinks = append(sinks, notify.NewRedisSink(client, cfg.RedisChannel))
		}
	}
	if cfg.KafkaBrokers != "" {
		client, err := notify.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			sugar.Warnw("kafka notifications disabled", "error", err)
		} else {
			defer client.Close()
			sinks = append(sinks, notify.NewKafkaSink(client, cfg.KafkaTopic, sugar))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []service.Option{
		service.WithPhotoLimits(service.PhotoLimits{MaxPx: cfg.PhotoMaxPx, MaxBytes: cfg.PhotoMaxBytes()}),
		service.WithRecentDays(cfg.RecentDays),
	}
	svc := handlers.Services{
		Documents: service.NewDocumentService(docs, events, photos, notify.NewFanout(sugar, sinks...), m, sugar, opts...),
		Forms:     service.NewFormService(forms, photos, m, sugar, opts...),
		Reports:   service.NewReportService(docs, forms, photos, sugar, opts...),
		Users:     service.NewUserService(repo.NewUserRepository(gormDB), cfg.AuthSecret),
	}
	h := handlers.NewHandler(svc, sqlDB, m, sugar, cfg)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"PhotoBackend", cfg.PhotoBackend,
		"MediaRoot", cfg.MediaRoot,
		"Notifiers", len(sinks),
	)
	sugar.Infow("Starting server", "addr", srv.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("Server failed", "error", err)
	}
	sugar.Infow("Server stopped")
}
