package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/raffaelramalhorosa/smart-display/internal/api"
	"github.com/raffaelramalhorosa/smart-display/internal/config"
	"github.com/raffaelramalhorosa/smart-display/internal/display"
	"github.com/raffaelramalhorosa/smart-display/internal/fetcher"
	"github.com/raffaelramalhorosa/smart-display/internal/remote"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
	"github.com/raffaelramalhorosa/smart-display/internal/telemetry"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	godotenv.Load()

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "displayd", cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}

	// --- Dependencies ---
	var opts []remote.Option
	if cfg.DayInfoPath != "" {
		opts = append(opts, remote.WithDayInfoPath(cfg.DayInfoPath))
	}
	backend, err := remote.New(cfg.BackendURL, logger, opts...)
	if err != nil {
		logger.Error("invalid backend url", "url", cfg.BackendURL, "error", err)
		os.Exit(1)
	}

	session := store.OpenSession(cfg.SessionDir, logger)
	defer session.Close()

	feeds := store.New(store.DefaultPerFeed)
	for _, f := range cfg.Feeds() {
		feeds.AddFeed(f.Name, f.URL)
	}
	fetch := fetcher.New(feeds, cfg.FeedPoll, logger)

	svc, err := display.New(cfg, display.Deps{
		Backend: backend,
		Session: session,
		Feeds:   feeds,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("display setup failed", "error", err)
		os.Exit(1)
	}
	srv := api.New(svc, feeds, logger)

	// --- Background loops ---
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fetch.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		svc.Run(ctx)
	}()

	// --- HTTP server ---
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.Port, "backend", cfg.BackendURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	cancel() // stop the loops

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	wg.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
