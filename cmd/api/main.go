package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/safar/go-travel-store/internal/auth"
	"github.com/safar/go-travel-store/internal/config"
	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/events"
	"github.com/safar/go-travel-store/internal/handler"
	"github.com/safar/go-travel-store/internal/logging"
	"github.com/safar/go-travel-store/internal/middleware"
	"github.com/safar/go-travel-store/internal/payment"
	"github.com/safar/go-travel-store/internal/router"
	"github.com/safar/go-travel-store/internal/service"
)

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

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.NewConnection(startCtx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database")

	rdb, err := middleware.NewRedisClient(startCtx, cfg.Redis.URL)
	if err != nil {
		logger.Warn("Redis unavailable, caching and rate limiting disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	publisher, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer publisher.Close()

	sessions := auth.NewManager(cfg.Session.Secret, cfg.Session.TTL, auth.NewRedisRevoker(rdb, ""))
	gateway := payment.NewGateway(cfg.Stripe)

	checkout := service.NewCheckoutService(db, publisher, logger)
	bookings := service.NewBookingService(db, publisher, logger)
	payments := service.NewPaymentService(db, gateway, publisher, logger)

	e := router.New(router.Deps{
		Config:   cfg,
		Sessions: sessions,
		Redis:    rdb,
		Logger:   logger,
	}, router.Handlers{
		Auth:     handler.NewAuthHandler(db, sessions, cfg.Session, logger),
		Catalog:  handler.NewCatalogHandler(db),
		Cart:     handler.NewCartHandler(db),
		Orders:   handler.NewOrderHandler(checkout),
		Bookings: handler.NewBookingHandler(bookings, middleware.NewCacheInvalidator(cfg.Cache, rdb, logger)),
		Payments: handler.NewPaymentHandler(payments, logger),
		Health:   handler.NewHealthHandler(db, cfg.GoogleMapsAPIKey, logger),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Env),
			zap.String("events_broker", cfg.Events.Broker),
			zap.Bool("redis", rdb != nil))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
