package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/handlers"
	"github.com/akolanti/GoIngest/internal/mcpserver"
	"github.com/akolanti/GoIngest/internal/server"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

func main() {
	var configPath, listenAddr string
	flag.StringVar(&configPath, "config", "", "config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides server.addr")
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
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}
	defer func() { _ = services.Close() }()

	opts := server.Options{
		Addr:        cfg.Server.Addr,
		ReadTimeout: cfg.Server.ReadTimeout,
		RatePerSec:  cfg.Server.RatePerSec,
		RateBurst:   cfg.Server.RateBurst,
	}
	if cfg.Server.MCPEnabled {
		opts.MCP = mcpserver.New(services.Search).HTTPHandler()
	}
	srv := server.New(handlers.New(services.Search, services.Jobs), opts)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logger.Info("Server is shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("Forced shutdown", "error", err)
		}
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server stopped", "error", err)
		}
	}
	logger.Info("Server stopped")
}
