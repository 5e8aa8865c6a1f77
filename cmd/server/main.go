// Command server wires config, storage, the engine manager, the live
// progression websocket hub and the HTTP API together and runs them
// with graceful shutdown, the same shape as the teacher's cmd/main.go.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/bracketengine/api"
	"github.com/Dosada05/bracketengine/config"
	"github.com/Dosada05/bracketengine/engine"
	"github.com/Dosada05/bracketengine/snapshot"
	"github.com/Dosada05/bracketengine/storage/postgres"
	"github.com/Dosada05/bracketengine/ws"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.String("listen_addr", cfg.ListenAddr))

	dbConn, err := postgres.Connect(cfg.DatabaseURL, cfg.DBTimeout)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	store := postgres.New(dbConn, logger)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	manager := engine.New(store, engine.WithLogger(logger))

	hub := ws.NewHubWithPingInterval(logger, cfg.WSPingInterval)
	go hub.Run()

	var exporter *snapshot.Exporter
	if cfg.S3Bucket != "" {
		uploader, err := snapshot.NewUploader(ctx, snapshot.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logger.Error("failed to initialize snapshot uploader", slog.Any("error", err))
			os.Exit(1)
		}
		exporter = snapshot.NewExporter(manager, uploader)
	} else {
		logger.Warn("SNAPSHOT_S3_BUCKET not set; stage snapshot export is disabled")
	}

	if cfg.OrganizerPasswordHash == "" {
		logger.Error("ORGANIZER_PASSWORD_HASH is required")
		os.Exit(1)
	}
	auth := api.NewAuthenticator(cfg.JWTSecret, cfg.OrganizerPasswordHash)

	handlers := api.NewHandlers(manager, auth, hub, exporter, logger)
	router := api.NewRouter(handlers)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("server exited")
}
