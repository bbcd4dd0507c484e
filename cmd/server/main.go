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

	"daycare-backend-go/internal/config"
	"daycare-backend-go/internal/db"
	httpapi "daycare-backend-go/internal/http"
	"daycare-backend-go/internal/logging"
	"daycare-backend-go/internal/migrations"
	"daycare-backend-go/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	logger, closeLogs, err := logging.Setup(cfg.LogDir, cfg.LogRetentionDays)
	if err != nil {
		logger.Warn("log file unavailable, logging to stdout only", "dir", cfg.LogDir, "err", err)
	}
	defer closeLogs()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		closeLogs()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := migrations.Apply(ctx, store); err != nil {
		return err
	}

	server := httpapi.NewServer(store, cfg)
	created, err := services.EnsureBootstrapAdmin(ctx, store, server.Tokens, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if created {
		logger.Warn("bootstrap admin created, change its password", "username", cfg.BootstrapAdminUsername)
	}
	if _, err := services.EnsureStoragePath(cfg.MediaStoragePath, services.BucketChildren); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "dialect", store.Dialect())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
