package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"nudgify/internal/amqp"
	"nudgify/internal/cli"
	applog "nudgify/internal/log"
	"nudgify/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.ConfigureLogger(os.Stdout, cfg, applog.ComponentWorker)
	logger.Info("Starting nudgify-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	analyzer, err := cli.NewAnalyzer(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize analyzer", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultsKey)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	analysisWorker := worker.NewAnalysisWorker(analyzer, amqpClient, cfg.DefaultBudget, logger)

	ctx, done := cli.GracefulShutdown(logger.Slog(), 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming analyze requests",
			"queue", cfg.AMQPQueue,
			"concurrency", cfg.WorkerConcurrency)
		return amqpClient.ConsumeAnalyzeRequests(gctx, cfg.WorkerConcurrency, analysisWorker.HandleAnalyzeRequest)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
