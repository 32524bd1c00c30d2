package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/climate-stress-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-stress-service/internal/adapter/kafka"
	"github.com/couchcryptid/climate-stress-service/internal/adapter/mapbox"
	"github.com/couchcryptid/climate-stress-service/internal/config"
	"github.com/couchcryptid/climate-stress-service/internal/domain"
	"github.com/couchcryptid/climate-stress-service/internal/observability"
	"github.com/couchcryptid/climate-stress-service/internal/pipeline"
	"github.com/couchcryptid/climate-stress-service/internal/portfolio"
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

	districts, err := loadDistricts(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to load districts", "error", err)
		os.Exit(1)
	}

	seed := cfg.PortfolioSeed
	if seed == 0 {
		seed = uint64(domain.Now().UnixNano())
	}
	generator, err := portfolio.NewGenerator(districts, seed)
	if err != nil {
		logger.Error("failed to create generator", "error", err)
		os.Exit(1)
	}
	store := portfolio.NewStore(portfolio.NewCache(cfg.PortfolioCachePath), generator, cfg.PortfolioSize, logger)

	// Report publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.ReportPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("report publishing enabled", "topic", cfg.KafkaReportTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(store, publisher, logger, metrics)
	if err := p.Load(ctx); err != nil {
		logger.Error("failed to load portfolio", "error", err)
		os.Exit(1)
	}

	defaultScenario, err := domain.LookupScenario(cfg.DefaultScenario)
	if err != nil {
		logger.Error("invalid default scenario", "error", err)
		os.Exit(1)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, defaultScenario, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := p.Drain(shutdownCtx); err != nil {
		logger.Error("report publish drain error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// loadDistricts returns the built-in district table, or the DISTRICTS_FILE
// table with missing coordinates geocoded when Mapbox is enabled.
func loadDistricts(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) ([]domain.District, error) {
	if cfg.DistrictsFile == "" {
		return domain.DefaultDistricts(), nil
	}

	districts, err := domain.LoadDistricts(cfg.DistrictsFile)
	if err != nil {
		return nil, err
	}

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	districts, err = domain.ResolveDistrictCoordinates(ctx, districts, geocoder, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("districts loaded", "path", cfg.DistrictsFile, "count", len(districts))
	return districts, nil
}
