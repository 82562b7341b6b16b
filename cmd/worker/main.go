package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"alert-case-service/internal/activities"
	"alert-case-service/internal/config"
	"alert-case-service/internal/observability"
	"alert-case-service/internal/workflows"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CASES_CONFIG"), "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if cfg.OTelEndpoint != "" {
		cleanup, err := observability.InitTracer(context.Background(), cfg.OTelEndpoint, "cases-worker")
		if err != nil {
			logger.Error("init tracer", "error", err)
			os.Exit(1)
		}
		defer cleanup(context.Background())
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		logger.Error("unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.InvestigateCase)
	w.RegisterActivity(&activities.Activities{
		Notifier: activities.LogNotifier{Logger: logger.With("component", "notifier")},
	})

	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
}
