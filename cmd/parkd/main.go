package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"parking-ledger/internal/archive"
	"parking-ledger/internal/config"
	"parking-ledger/internal/logging"
	"parking-ledger/internal/parking"
	"parking-ledger/internal/server"
)

var port = flag.String("port", "", "Port for HTTP server (overrides SERVER_PORT)")

func main() {
	flag.Parse()

	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}

	loggerCleanup, err := logging.Init(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer loggerCleanup()

	telemetryProvider, err := parking.NewTelemetryProvider()
	if err != nil {
		zap.L().Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	var store *archive.Store
	if cfg.ArchivePath != "" {
		store, err = archive.Open(cfg.ArchivePath)
		if err != nil {
			zap.L().Fatal("Failed to open receipt archive", zap.Error(err))
		}
		defer store.Close()
	}

	handler := server.NewHandler(cfg, telemetryProvider, store)
	srv := server.NewServer(cfg.Port, handler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		zap.L().Info("Received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Server shutdown error", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		zap.L().Error("Server error", zap.Error(err))
	}

	shutdownTelemetry(telemetryProvider)
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	zap.L().Info("Shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Error shutting down telemetry", zap.Error(err))
	}
}
