package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"alert-case-service/internal/api"
	"alert-case-service/internal/audit"
	"alert-case-service/internal/config"
	"alert-case-service/internal/lifecycle"
	"alert-case-service/internal/observability"
	"alert-case-service/internal/store"
	"alert-case-service/internal/tasks"
	"alert-case-service/internal/workflows"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CASES_CONFIG"), "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(configPath, logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEndpoint != "" {
		cleanup, err := observability.InitTracer(ctx, cfg.OTelEndpoint, "cases-api")
		if err != nil {
			return err
		}
		defer cleanup(context.Background())
	}

	storeCfg := store.DefaultConfig(cfg.Storage.Path)
	storeCfg.InMemory = cfg.Storage.InMemory
	storeCfg.Logger = logger.With("component", "badger")
	db, err := store.Open(storeCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	// The client connects on first use, so cases can still be drafted while
	// Temporal is down and handed off later through /handoff.
	tc, err := client.NewLazyClient(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return err
	}
	defer tc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	rec := audit.NewRecorder(db.Audit(), logger, audit.WithMetrics(metrics))
	orch := tasks.NewOrchestrator(db.Tasks(), rec, tasks.NewConfigDirectory(cfg), cfg.Groups, logger, tasks.WithMetrics(metrics))
	bridge := workflows.NewTemporalBridge(tc, cfg.Temporal.TaskQueue, logger)

	engine, err := lifecycle.New(cfg, lifecycle.Deps{
		Cases:      db.Cases(),
		AuditLog:   db.Audit(),
		Tasks:      orch,
		Audit:      rec,
		Bridge:     bridge,
		Authorizer: lifecycle.NewRoleAuthorizer(cfg),
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewServer(cfg.HTTP, engine, orch, bridge, reg, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", cfg.HTTP.Addr, "task_queue", cfg.Temporal.TaskQueue)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
