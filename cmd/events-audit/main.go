package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/events"
	"github.com/safar/go-travel-store/internal/logging"
)

// events-audit consumes storefront events from the configured broker and
// writes one log line per event.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting events audit consumer",
		zap.String("broker", cfg.Events.Broker),
		zap.String("topic", cfg.Events.Topic))

	auditor := events.NewAuditor(cfg.Events, logger)
	if err := auditor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Audit consumer failed", zap.Error(err))
	}
	logger.Info("Audit consumer stopped")
}
