package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/server"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger_i.Init(config.IS_PROD, "")
		logger_i.NewLogger("main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	closeLog := logger_i.Init(cfg.Log.Prod, cfg.Log.File)
	defer closeLog()
	logger := logger_i.NewLogger("main")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

// run blocks until SIGINT/SIGTERM or a fatal consumer error.
func run(cfg *config.Config, logger *logger_i.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	consumer, err := services.NewConsumer(ctx)
	if err != nil {
		return err
	}

	if cfg.Reconcile.Enabled {
		sweeper, err := services.NewSweeper()
		if err != nil {
			return err
		}
		go sweeper.Run(ctx)
	}

	go func() {
		if err := server.ServeMetrics(ctx, cfg.Server.MetricsAddr); err != nil {
			logger.Error("Metrics listener failed", "error", err, "addr", cfg.Server.MetricsAddr)
		}
	}()

	logger.Info("Worker started", "source", cfg.ChangeLog.Source, "stream", cfg.ChangeLog.Stream, "workers", cfg.ChangeLog.Workers)
	return consumer.Run(ctx)
}
