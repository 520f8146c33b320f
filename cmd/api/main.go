package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"velorent/internal/api"
	"velorent/internal/config"
	"velorent/internal/database"
	"velorent/internal/domain"
	"velorent/internal/events"
	"velorent/internal/logging"
	"velorent/internal/metrics"
	"velorent/internal/models"
	"velorent/internal/payment"
	"velorent/internal/repository"
	"velorent/internal/service"
	"velorent/internal/status"
	"velorent/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	bikes, err := loadBikes(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, bikes, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	statusRepo := buildStatusRepository(redisClient, &logger)
	eventBus := events.NewEventBus()
	statusPublisher := status.NewPublisher(eventBus, statusRepo, &logger)

	provider := payment.NewStripeProvider(cfg.Payment.StripeKey, cfg.Payment.PaymentMethod)

	rentals := service.NewRentalService(db, provider, statusPublisher, statusRepo, service.RentalServiceOptions{
		Currency:       cfg.Payment.Currency,
		HelmetFeeCents: cfg.Rental.HelmetFeeCents,
		MaxBookingDays: cfg.Rental.MaxBookingDays,
		RateLimit:      cfg.Rental.RateLimitAttempts,
		RateWindow:     time.Duration(cfg.Rental.RateLimitWindowSec) * time.Second,
	}, &logger)

	httpServer := api.NewHTTPServer(cfg, rentals, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endWorker := worker.NewRentalEndWorker(
		db,
		statusPublisher,
		worker.RetryPolicy{},
		time.Duration(cfg.Rental.WorkerPollSeconds)*time.Second,
		&logger,
	)
	go endWorker.Run(ctx)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadBikes reads the fleet from configs/bikes.yaml; if the file is
// absent, the bikes section of the main config is used instead.
func loadBikes(cfg *config.Config, logger *zerolog.Logger) ([]models.Bike, error) {
	bikesPath := os.Getenv("BIKES_PATH")
	if bikesPath == "" {
		bikesPath = "configs/bikes.yaml"
	}

	bikesData, err := os.ReadFile(bikesPath)
	if os.IsNotExist(err) {
		logger.Info().Str("bikes_path", bikesPath).Msg("bikes file not found, using config fleet")
		return cfg.Bikes, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("bikes_path", bikesPath).Msg("read bikes")
		return nil, err
	}

	var bikesConfig struct {
		Bikes []models.Bike `yaml:"bikes"`
	}
	if err := yaml.Unmarshal(bikesData, &bikesConfig); err != nil {
		logger.Error().Err(err).Str("bikes_path", bikesPath).Msg("parse bikes")
		return nil, err
	}

	if err := config.ValidateBikes(bikesConfig.Bikes); err != nil {
		return nil, err
	}

	return bikesConfig.Bikes, nil
}

func initDatabase(cfg *config.Config, bikes []models.Bike, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	bikePointers := make([]*models.Bike, len(bikes))
	for i := range bikes {
		bikePointers[i] = &bikes[i]
	}
	db.SetBikes(bikePointers)
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildStatusRepository prefers Redis with an in-memory fallback so the
// live-status display keeps working through a Redis outage.
func buildStatusRepository(redisClient *redis.Client, logger *zerolog.Logger) domain.StatusRepository {
	memory := repository.NewMemoryStatusRepository(models.DefaultStatusTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisStatusRepository(redisClient, models.DefaultStatusTTL)
	return repository.NewFailoverStatusRepository(primary, memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
