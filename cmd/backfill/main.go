package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricebackfill/config"
	"pricebackfill/internal/collector"
	"pricebackfill/logger"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// viper config
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 1
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := collector.Run(ctx, cfg, log); err != nil {
		log.Error("backfill failed", zap.Error(err))
		return 1
	}
	return 0
}
