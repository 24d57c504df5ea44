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

	audioimpl "github.com/foxseedlab/soapscribe/external/audio"
	configloader "github.com/foxseedlab/soapscribe/external/config"
	credentialimpl "github.com/foxseedlab/soapscribe/external/credential"
	llmimpl "github.com/foxseedlab/soapscribe/external/llm"
	repositoryimpl "github.com/foxseedlab/soapscribe/external/repository"
	transcriberimpl "github.com/foxseedlab/soapscribe/external/transcriber"
	webhookimpl "github.com/foxseedlab/soapscribe/external/webhook"
	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/metrics"
	"github.com/foxseedlab/soapscribe/internal/notegen"
	"github.com/foxseedlab/soapscribe/internal/server"
	"github.com/foxseedlab/soapscribe/internal/session"
	"github.com/samber/do/v2"
)

const (
	shutdownTimeout      = 15 * time.Second
	sessionSweepInterval = time.Minute
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "runtime_mode", cfg.RuntimeMode, "transcriber_provider", cfg.TranscriberProvider)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)
	defer func() { _ = injector.Shutdown() }()

	slog.Info("startup: launching http server")
	runServer(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsLocal() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	llmimpl.RegisterDI(injector)
	credentialimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	metrics.RegisterDI(injector)
	session.RegisterDI(injector)
	notegen.RegisterDI(injector)
	server.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.RunSweeper(ctx, sessionSweepInterval)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
}
