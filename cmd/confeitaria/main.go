package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"confeitaria/internal/backend"
	"confeitaria/internal/cli"
	apphttp "confeitaria/internal/http"
	"confeitaria/internal/log"
	"confeitaria/internal/services"
	"confeitaria/internal/summary"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	overpayment, err := services.ParseOverpaymentPolicy(cfg.OverpaymentPolicy)
	if err != nil {
		logger.Error("Invalid overpayment policy", log.FieldError, err)
		os.Exit(1)
	}
	scope, err := summary.ParseCanceledScope(cfg.CanceledCountScope)
	if err != nil {
		logger.Error("Invalid canceled count scope", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(nil).CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to open record store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reports := apphttp.NewReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL)
	svc, err := services.New(context.Background(), res.Store, services.Options{
		Publisher:     res.Publisher,
		Overpayment:   overpayment,
		CanceledScope: scope,
		OnChange:      reports.Invalidate,
	})
	if err != nil {
		logger.Error("Failed to load records", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, reports, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Starting confeitaria server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"overpayment", string(overpayment),
		"canceled_scope", string(scope))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
