package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leakwatch-service/internal/adapter/forecastapi"
	httpadapter "github.com/couchcryptid/leakwatch-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/leakwatch-service/internal/adapter/kafka"
	"github.com/couchcryptid/leakwatch-service/internal/config"
	"github.com/couchcryptid/leakwatch-service/internal/forecast"
	"github.com/couchcryptid/leakwatch-service/internal/notify"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
	"github.com/couchcryptid/leakwatch-service/internal/pipeline"
	"github.com/couchcryptid/leakwatch-service/internal/toast"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Forecasting API client, cached when FORECAST_CACHE_TTL > 0.
	var source forecastapi.Source = forecastapi.NewClient(cfg.ForecastAPIURL, cfg.ForecastAPITimeout, metrics, logger)
	if cfg.ForecastCacheTTL > 0 {
		source = forecastapi.NewCachedSource(source, cfg.ForecastCacheTTL, metrics)
		logger.Info("forecast cache enabled", "ttl", cfg.ForecastCacheTTL)
	}

	hub := httpadapter.NewHub(cfg.CORSAllowedOrigins, logger)

	emitter := toast.NewEmitter(clock, logger, metrics)
	board := toast.NewBoard(clock, metrics)
	board.OnChange(hub.PublishBoard)
	emitter.Subscribe(board.Show)
	emitter.Subscribe(hub.PublishToast)

	store := notify.NewStore(clock, metrics)
	store.OnAdd(hub.PublishNotification)

	// Mirror the notification feed to Kafka (feature-flagged via KAFKA_BROKERS).
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		store.OnAdd(writer.Publish)
		logger.Info("kafka notification mirror enabled", "topic", cfg.KafkaNotificationsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka notification mirror disabled")
	}

	session := forecast.NewSession(clock)
	scanner := pipeline.NewScanner(source, store, emitter, clock, logger, metrics, cfg.ScanThreshold)
	predictor := pipeline.NewPredictor(source, session, scanner, emitter, logger, cfg.ScanThreshold)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:          scanner,
		Predictor:      predictor,
		Scanner:        scanner,
		Forecasts:      source,
		Notifications:  store,
		Session:        session,
		Toasts:         board,
		Hub:            hub,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	scanner.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	predictor.Wait()
	board.Close()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
