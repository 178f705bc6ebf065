package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/anm-alert-map/internal/adapter/anm"
	httpadapter "github.com/couchcryptid/anm-alert-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/anm-alert-map/internal/adapter/kafka"
	"github.com/couchcryptid/anm-alert-map/internal/card"
	"github.com/couchcryptid/anm-alert-map/internal/config"
	"github.com/couchcryptid/anm-alert-map/internal/mapcache"
	"github.com/couchcryptid/anm-alert-map/internal/observability"
	"github.com/couchcryptid/anm-alert-map/internal/pipeline"
	"github.com/couchcryptid/anm-alert-map/internal/statestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := mapcache.NewLoader(mapcache.NewFetcher(cfg.MapURL, cfg.MapFetchTimeout), logger, metrics)
	c := card.New(loader, logger, metrics)
	if err := c.Configure(ctx, card.Config{Entity: cfg.CardEntity}); err != nil {
		logger.Error("failed to configure card", "error", err)
		os.Exit(1)
	}

	store := statestore.New(logger, c)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger, metrics)
	transformer := pipeline.NewTransformer(logger, cfg.CardEntity)
	p := pipeline.New(reader, transformer, store, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Card:   c,
		States: store,
		Ready:  c,
		Checks: map[string]sharedobs.ReadinessChecker{"kafka": p},
		Logger: logger,
	})

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start state pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	// Publish rendered frames.
	frames, unsubscribe := c.Subscribe()
	go func() {
		if err := writer.Run(ctx, frames); err != nil {
			logger.Error("frame publisher error", "error", err)
		}
	}()

	// Poll the ANM API directly (feature-flagged via ANM_ENABLED).
	if cfg.FeedEnabled {
		client := anm.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, logger, metrics)
		poller := anm.NewPoller(client, store, cfg.CardEntity, cfg.FeedInterval, clockwork.NewRealClock(), logger, metrics)
		logger.Info("anm feed enabled", "base_url", cfg.FeedBaseURL, "interval", cfg.FeedInterval)
		go func() {
			if err := poller.Run(ctx); err != nil {
				logger.Error("anm poller error", "error", err)
			}
		}()
	} else {
		logger.Info("anm feed disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	unsubscribe()
	c.Close()
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
