package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coverly/erp-bridge/internal/audit"
	"github.com/coverly/erp-bridge/internal/config"
	"github.com/coverly/erp-bridge/internal/database"
	"github.com/coverly/erp-bridge/internal/erp"
	"github.com/coverly/erp-bridge/internal/handlers"
	"github.com/coverly/erp-bridge/internal/health"
	"github.com/coverly/erp-bridge/internal/pricecache"
	"github.com/coverly/erp-bridge/internal/pricing"
	"github.com/coverly/erp-bridge/internal/tenantstore"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		DBName:   cfg.PostgresDatabase,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database initialization failed")
	}

	cache := pricecache.New(logger)
	erpClient := erp.NewClient(logger)
	store := tenantstore.New(logger, db)

	recorder := audit.Recorder(audit.NewDBRecorder(db))
	if cfg.AuditExportEnabled() {
		recorder = audit.Combine(recorder, audit.NewS3Exporter(logger, cfg))
	}

	checker := health.NewChecker(logger, store, store, erpClient, cfg.HealthBatchSize, cfg.DegradedThreshold)
	priceService := pricing.NewService(logger, cache, erpClient, store, cfg.CacheTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := pricecache.NewSweeper(logger, cache, cfg.CacheSweepInterval)
	go sweeper.Start(ctx)

	scheduler := health.NewScheduler(logger, checker, cfg.HealthCheckInterval)
	go scheduler.Start(ctx)

	adminHandler := handlers.NewAdminHandler(logger, cache, checker, priceService, recorder)

	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware(logger, db))
	r.Use(handlers.RateLimitMiddleware(cfg))
	handlers.RegisterRoutes(r, adminHandler, cfg.AdminSecret)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", server.Addr).Info("Starting server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server failed")
	}
}
