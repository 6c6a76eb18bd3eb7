package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "mail-triage-backend/cmd/api"
	"mail-triage-backend/internal/di"
	"mail-triage-backend/pkg/config"

	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run gets all dependencies injected and serves until SIGINT or SIGTERM.
func run(cfg *config.Config, logger *zap.Logger, handler *api.Handler) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting mail triage backend",
		zap.String("mail_provider", cfg.MailProvider),
		zap.String("ai_provider", cfg.AIProvider),
	)
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}
