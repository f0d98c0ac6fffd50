package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/auth"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/config"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/healthcheck"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/httpapi"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/usecase"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize metrics conditionally
	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting CRM Inbound Engine",
		zap.String("version", Version),
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	// Store client is constructed once here and injected everywhere;
	// components never open their own connections.
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	leadRepo := storage.NewLeadRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	tokenRepo := storage.NewTokenRepoAdapter(postgresRepo)
	errorRepo := storage.NewPipelineErrorRepoAdapter(postgresRepo)

	// Error sink pool: pipeline error intake must never block or fail a request.
	errorSink, err := usecase.NewErrorSink(cfg.WorkerPools.ErrorSink, errorRepo, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize error sink pool", zap.Error(err))
	}

	service := usecase.NewService(leadRepo, messageRepo, errorRepo, errorSink, cfg)
	resolver := auth.NewResolver(tokenRepo)
	handler := httpapi.NewHandler(service, Version)

	// Ops server: liveness, readiness and metrics on a separate port.
	opsServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log, postgresRepo.Ping)
	if cfg.Metrics.Enabled {
		opsServer.RegisterMetricsHandler(promhttp.Handler())
	}
	opsServer.Start()

	// Gateway-facing API server.
	apiServer := httpapi.NewServer(handler, resolver, logger.Log)
	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		logger.Log.Info("Starting API server", zap.String("addr", addr))
		if err := apiServer.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("API server error", zap.Error(err))
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("API server shutdown error", zap.Error(err))
	}

	// Drain the sink after the API stops accepting reports.
	errorSink.Stop()

	if err := opsServer.Stop(shutdownCtx); err != nil {
		logger.Log.Error("Ops server shutdown error", zap.Error(err))
	}

	if err := postgresRepo.Close(shutdownCtx); err != nil {
		logger.Log.Error("Database close error", zap.Error(err))
	}

	logger.Log.Info("Shutdown complete")
}
