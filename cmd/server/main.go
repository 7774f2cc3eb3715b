/*
Package main is the entry point for the room server.

It is responsible for loading configuration, initializing the global logging system,
opening the optional chat archive, starting the room Manager and the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncroom/internal/app/archive"
	"syncroom/internal/app/db"
	"syncroom/internal/app/hub"
	"syncroom/internal/configs"
	"syncroom/internal/handler"
	"syncroom/internal/pkg/logx"
)

const archiveQueueSize = 1024

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("room_max_clients", cfg.RoomMaxClients).
		Dur("session_timeout", cfg.SessionTimeout).
		Bool("archive_enabled", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &handler.AppDeps{Config: cfg}

	var recorder *archive.Recorder
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to open chat archive database")
		}
		defer pool.Close()

		recorder = archive.NewRecorder(archive.NewPostgresStore(pool), archiveQueueSize)
		deps.Archive = recorder
	}

	// Initialize the room Manager
	var chatRecorder hub.ChatRecorder
	if recorder != nil {
		chatRecorder = recorder
	}
	manager := hub.NewManager(hub.SettingsFromConfig(cfg), chatRecorder)
	deps.Manager = manager

	// Setup HTTP server and routes
	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler.Router(ctx, deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Room server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	if recorder != nil {
		recorder.Close()
	}

	logx.Info("Server gracefully stopped.")
}
