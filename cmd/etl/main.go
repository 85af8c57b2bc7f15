package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	fsadapter "github.com/couchcryptid/obs-seq-etl/internal/adapter/fs"
	httpadapter "github.com/couchcryptid/obs-seq-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/obs-seq-etl/internal/adapter/kafka"
	"github.com/couchcryptid/obs-seq-etl/internal/config"
	"github.com/couchcryptid/obs-seq-etl/internal/observability"
	"github.com/couchcryptid/obs-seq-etl/internal/obsseq"
	"github.com/couchcryptid/obs-seq-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Composite construction is feature-flagged via COMPOSITES_ENABLED,
	// with COMPOSITE_CONFIG overriding the embedded defaults.
	var composites obsseq.CompositeConfig
	if cfg.CompositesEnabled {
		composites, err = obsseq.LoadCompositeConfig(cfg.CompositeConfig)
		if err != nil {
			logger.Error("failed to load composite config", "error", err)
			os.Exit(1)
		}
		logger.Info("composite construction enabled", "composites", len(composites))
	} else {
		logger.Info("composite construction disabled")
	}

	source := fsadapter.NewSource(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewSequenceTransformer(obsseq.Options{MaxMetadataLines: cfg.MaxMetadataLines}, composites)

	p := pipeline.New(source, transformer, writer, logger, metrics, nil, cfg.PollInterval, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
