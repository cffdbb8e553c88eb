package main

import (
	"context"
	"os"

	"confeitaria/internal/backend"
	"confeitaria/internal/cli"
	"confeitaria/internal/log"
	"confeitaria/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting confeitaria-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Mirror == backend.NoMirror {
		logger.Error("No spreadsheet mirror configured, set SHEETS_MIRROR")
		os.Exit(1)
	}

	factory := backend.NewFactory(nil)
	res, err := factory.CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to open record store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	mirror, err := factory.CreateMirror(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", log.FieldError, err, "mirror", cfg.Mirror)
		return
	}

	// Without a broker the worker falls back to periodic reconciles.
	var consumer worker.Consumer
	if res.Broker != nil {
		consumer = res.Broker
	} else {
		logger.Warn("AMQP disabled, mirroring by periodic reconcile only", "interval", cfg.ReconcileInterval.String())
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	syncWorker := worker.NewSyncWorker(res.Store, mirror)
	if err := syncWorker.Run(ctx, consumer, cfg.ReconcileInterval); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		return
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
