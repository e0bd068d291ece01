// Package main provides the entry point for the scifetch HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/scidex/scifetch/internal/config"
	"github.com/scidex/scifetch/internal/coordinator"
	"github.com/scidex/scifetch/internal/domain"
	"github.com/scidex/scifetch/internal/observability"
	httpserver "github.com/scidex/scifetch/internal/server/http"
	"github.com/scidex/scifetch/internal/sources"
	"github.com/scidex/scifetch/internal/sources/arxiv"
	"github.com/scidex/scifetch/internal/sources/clinvar"
	"github.com/scidex/scifetch/internal/sources/crossref"
	"github.com/scidex/scifetch/internal/sources/medgen"
	"github.com/scidex/scifetch/internal/sources/pubmed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("scifetch server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	}

	// Register the source adapters.
	registry := buildRegistry(cfg, logger)
	for _, client := range registry.EnabledClients() {
		logger.Info().Str("source", client.Name()).Msg("source enabled")
	}

	// Build the fetch coordinator.
	coord, err := coordinator.New(registry, coordinatorConfig(cfg), logger, metrics)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}

	// Create the HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if cfg.Metrics.Enabled {
		httpCfg.MetricsPath = cfg.Metrics.Path
		httpCfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	httpSrv := httpserver.NewServer(httpCfg, coord, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().Str("address", httpCfg.Address).Msg("scifetch is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down scifetch")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("scifetch shutdown complete")
	return nil
}

// buildRegistry constructs and registers every configured source adapter.
// Disabled adapters are still registered so the sources endpoint can list
// them; the coordinator rejects requests against them.
func buildRegistry(cfg *config.Config, logger zerolog.Logger) *sources.Registry {
	registry := sources.NewRegistry()

	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:    cfg.Sources.PubMed.BaseURL,
		APIKey:     cfg.Sources.PubMed.APIKey,
		Timeout:    cfg.Sources.PubMed.Timeout,
		RateLimit:  cfg.Sources.PubMed.RateLimit,
		BurstSize:  cfg.Sources.PubMed.BurstSize,
		MaxResults: cfg.Sources.PubMed.MaxResults,
		Enabled:    cfg.Sources.PubMed.Enabled,
	}, logger))

	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    cfg.Sources.ArXiv.BaseURL,
		Timeout:    cfg.Sources.ArXiv.Timeout,
		RateLimit:  cfg.Sources.ArXiv.RateLimit,
		BurstSize:  cfg.Sources.ArXiv.BurstSize,
		MaxResults: cfg.Sources.ArXiv.MaxResults,
		Enabled:    cfg.Sources.ArXiv.Enabled,
	}, logger))

	registry.Register(medgen.New(medgen.Config{
		BaseURL:    cfg.Sources.MedGen.BaseURL,
		APIKey:     cfg.Sources.MedGen.APIKey,
		Timeout:    cfg.Sources.MedGen.Timeout,
		RateLimit:  cfg.Sources.MedGen.RateLimit,
		BurstSize:  cfg.Sources.MedGen.BurstSize,
		MaxResults: cfg.Sources.MedGen.MaxResults,
		Enabled:    cfg.Sources.MedGen.Enabled,
	}, logger))

	registry.Register(clinvar.New(clinvar.Config{
		BaseURL:    cfg.Sources.ClinVar.BaseURL,
		APIKey:     cfg.Sources.ClinVar.APIKey,
		Timeout:    cfg.Sources.ClinVar.Timeout,
		RateLimit:  cfg.Sources.ClinVar.RateLimit,
		BurstSize:  cfg.Sources.ClinVar.BurstSize,
		MaxResults: cfg.Sources.ClinVar.MaxResults,
		Enabled:    cfg.Sources.ClinVar.Enabled,
	}, logger))

	registry.Register(crossref.New(crossref.Config{
		BaseURL:    cfg.Sources.CrossRef.BaseURL,
		Email:      cfg.Sources.CrossRef.Email,
		Timeout:    cfg.Sources.CrossRef.Timeout,
		RateLimit:  cfg.Sources.CrossRef.RateLimit,
		BurstSize:  cfg.Sources.CrossRef.BurstSize,
		MaxResults: cfg.Sources.CrossRef.MaxResults,
		Enabled:    cfg.Sources.CrossRef.Enabled,
	}, logger))

	return registry
}

// coordinatorConfig translates the loaded configuration into coordinator
// settings.
func coordinatorConfig(cfg *config.Config) coordinator.Config {
	ttls := make(map[domain.SourceType]time.Duration, len(cfg.Coordinator.TTLBySource))
	for name, ttl := range cfg.Coordinator.TTLBySource {
		if st, ok := domain.ParseSourceType(name); ok {
			ttls[st] = ttl
		}
	}

	return coordinator.Config{
		CacheSize:      cfg.Coordinator.CacheSize,
		DefaultTTL:     cfg.Coordinator.DefaultTTL,
		TTLBySource:    ttls,
		RequestTimeout: cfg.Coordinator.RequestTimeout,
		Retry: coordinator.RetryPolicy{
			MaxAttempts: cfg.Coordinator.Retry.MaxAttempts,
			BaseDelay:   cfg.Coordinator.Retry.BaseDelay,
			MaxDelay:    cfg.Coordinator.Retry.MaxDelay,
		},
	}
}
