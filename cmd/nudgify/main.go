package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"nudgify/internal/cli"
	apphttp "nudgify/internal/http"
	applog "nudgify/internal/log"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.ConfigureLogger(os.Stdout, cfg, applog.ComponentApp)

	analyzer, err := cli.NewAnalyzer(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize analyzer", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(analyzer, apphttp.Options{
		Addr:              ":" + cfg.Port,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		DefaultBudget:     cfg.DefaultBudget,
		CacheSize:         cfg.CacheSize,
		CacheTTL:          cfg.CacheTTL,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
	})

	ctx, done := cli.GracefulShutdown(logger.Slog(), 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting nudgify server",
		"port", cfg.Port,
		"default_budget", cfg.DefaultBudget.String(),
		"sheets", analyzer.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
