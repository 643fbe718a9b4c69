package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/curbside-labs/lotwatch/internal/api"
	"github.com/curbside-labs/lotwatch/internal/config"
	"github.com/curbside-labs/lotwatch/internal/database"
	"github.com/curbside-labs/lotwatch/internal/lpr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Lotwatch API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	// Connect to database
	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Plate recognition provider
	var recognizer lpr.Recognizer
	switch cfg.LPRProvider {
	case "rekognition":
		recognizer, err = lpr.NewRekognitionRecognizer(ctx, cfg.AWSRegion, logger)
		if err != nil {
			return fmt.Errorf("failed to create plate recognizer: %w", err)
		}
	case "none", "":
		logger.Warn("plate recognition disabled, /v1/lpr/recognize will not be served")
	default:
		return fmt.Errorf("unknown LPR provider: %s", cfg.LPRProvider)
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		DB:         pool,
		Config:     cfg,
		Recognizer: recognizer,
	})
	router.Setup()

	// Graceful shutdown
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
