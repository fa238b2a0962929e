package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"aafeed/internal/app"
	"aafeed/internal/config"
	"aafeed/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single ingestion batch and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx, *once); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
