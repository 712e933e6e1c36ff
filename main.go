package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewengine/internal/config"
	"reviewengine/internal/events"
	"reviewengine/internal/idgen"
	"reviewengine/internal/logger"
	"reviewengine/internal/service"
	"reviewengine/internal/storage"
	"reviewengine/internal/storage/memory"
	"reviewengine/internal/storage/postgres"
	httptransport "reviewengine/internal/transport/http"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(logger.Config{
		Level:      cfg.Log.Level,
		Production: cfg.App.IsProduction(),
	})

	if err := run(cfg, log); err != nil {
		log.Error("review engine stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := buildRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer cleanup()

	ids, err := idgen.NewSnowflake(cfg.App.NodeID)
	if err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	publisher, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close event publisher", "error", err)
		}
	}()

	svc := service.New(repo, ids, publisher, log,
		service.WithDefaultExpertisePriority(cfg.Expertise.DefaultPriority),
	)
	handler := httptransport.NewHandler(svc, log)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown", "error", err)
	}
	log.Info("HTTP server stopped")
	return nil
}

func buildRepository(ctx context.Context, cfg config.Config) (storage.Repository, func(), error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if cfg.Events.RedisURL == "" {
		log.Info("task events disabled")
		return events.NewNoop(), nil
	}
	return events.Dial(ctx, cfg.Events.RedisURL, cfg.Events.Stream, log)
}
