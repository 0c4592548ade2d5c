package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-failchain/internal/api"
	"github.com/miradorstack/mirador-failchain/internal/cache"
	"github.com/miradorstack/mirador-failchain/internal/config"
	"github.com/miradorstack/mirador-failchain/internal/engine"
	"github.com/miradorstack/mirador-failchain/internal/metrics"
	"github.com/miradorstack/mirador-failchain/internal/models"
	"github.com/miradorstack/mirador-failchain/internal/repo"
	"github.com/miradorstack/mirador-failchain/internal/services"
	"github.com/miradorstack/mirador-failchain/internal/utils"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the FailureChain gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// buildNormalizer wires the cache and reporter described by cfg into a Normalizer.
// The returned closer releases the cache connection.
func buildNormalizer(cfg *config.Config, logger *slog.Logger) (*engine.Normalizer, func()) {
	var cacheProvider cache.Provider = cache.NoopProvider{}
	closer := func() {}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			closer = func() { _ = provider.Close() }
		}
	}

	var publisher engine.Publisher
	if cfg.Reporter.BaseURL != "" {
		publisher = repo.NewReporterClient(cfg.Reporter.BaseURL, cfg.Reporter.PublishPath, cfg.Reporter.Timeout)
	}

	return engine.NewNormalizer(logger, cacheProvider, cfg.Cache.LegacyTTL, publisher, nil), closer
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	logger.Info("starting mirador-failchain", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	normalizer, closeCache := buildNormalizer(cfg, logger)
	defer closeCache()

	service := services.NewFailChainService(logger, normalizer)
	server, err := api.NewServer(cfg.Server, service, normalizer, logger)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	for _, source := range []models.Source{models.SourceLive, models.SourceLegacy, models.SourceXML} {
		if p95 := normalizer.LatencyP95(source); p95 > 0 {
			logger.Info("conversion latency at shutdown", slog.String("source", string(source)), slog.Duration("p95", p95))
		}
	}
	logger.Info("mirador-failchain stopped")
	return nil
}
