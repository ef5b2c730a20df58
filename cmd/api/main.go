package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/maintenance"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := newResources(logg)
	defer res.closeAll(context.Background())

	slot, err := buildSlot(ctx, cfg, res)
	requireResource(ctx, logg, res, "local slot", err)
	docs, err := buildDocuments(ctx, cfg, res)
	requireResource(ctx, logg, res, "document store", err)
	verifier, err := buildVerifier(ctx, cfg)
	requireResource(ctx, logg, res, "token verifier", err)
	sink, err := buildSink(ctx, cfg, res)
	requireResource(ctx, logg, res, "notification sink", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager, err := storefront.NewManager(storefront.Config{
		Backend: &storefront.Backend{
			Namespace:     cfg.Persistence.Namespace,
			Slot:          slot,
			Documents:     docs,
			RemoteTimeout: cfg.Persistence.RemoteTimeout,
			SaveAttempts:  cfg.Persistence.SaveMaxAttempts,
			SaveBaseDelay: cfg.Persistence.SaveBaseDelay,
			Metrics:       metrics.NewPersistenceMetrics(reg),
			Logger:        logg,
		},
		Sink:         sink,
		DismissAfter: cfg.Notifications.DismissAfter,
		Logger:       logg,
	})
	requireResource(ctx, logg, res, "session manager", err)

	jobMetrics := metrics.NewJobMetrics(reg)
	housekeeping, err := maintenance.NewService(maintenance.ServiceParams{
		Logger:   logg,
		Jobs:     []maintenance.Job{maintenance.NewSessionReaper(manager, cfg.Sessions.IdleTTL, jobMetrics, logg)},
		Metrics:  jobMetrics,
		Interval: cfg.Sessions.ReapInterval,
	})
	requireResource(ctx, logg, res, "maintenance service", err)
	go func() { _ = housekeeping.Run(ctx) }()

	addr := ":" + cfg.App.Port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"local_driver":   cfg.Persistence.LocalDriver,
		"remote_driver":  cfg.Persistence.RemoteDriver,
		"auth_provider":  cfg.Auth.Provider,
		"pubsub_enabled": cfg.Notifications.PubSubTopic != "",
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Sessions: manager,
			Verifier: verifier,
			Gatherer: reg,
			Pingers:  res.pingers,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "http shutdown", err)
	}
	if err := manager.Close(shutdownCtx); err != nil {
		logg.Error(serverCtx, "flushing sessions", err)
	}
	logg.Info(serverCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, res *resources, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "resource", name), "failed to bootstrap", err)
	res.closeAll(context.Background())
	os.Exit(1)
}
