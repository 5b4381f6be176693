package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pifcsv/internal/config"
	"github.com/JonMunkholm/pifcsv/internal/logging"
	"github.com/JonMunkholm/pifcsv/internal/service"
	"github.com/JonMunkholm/pifcsv/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell.
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.Info("configuration loaded",
		"env_file", envLoaded,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"format", cfg.Convert.Format,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	svc, err := service.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	server := web.NewServer(svc, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
