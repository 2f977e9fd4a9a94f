package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dealerdesk/internal/api"
	"dealerdesk/internal/config"
	"dealerdesk/internal/database"
	"dealerdesk/internal/domain"
	"dealerdesk/internal/events"
	"dealerdesk/internal/export"
	"dealerdesk/internal/logging"
	"dealerdesk/internal/metrics"
	"dealerdesk/internal/models"
	"dealerdesk/internal/repository"
	"dealerdesk/internal/service"
	"dealerdesk/internal/worker"

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
	cfg, catalog, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, catalog, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, cache := initAvailabilityCache(ctx, cfg, &logger)
	defer repository.Close(redisClient)

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	reminderWorker := worker.NewReminderWorker(db, nil, redisClient, retryPolicy, cfg.Scheduling.ReminderTime, &logger)
	go reminderWorker.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	scheduleCfg := cfg.ScheduleConfig()
	bookingService := service.NewBookingService(db, db, db, eventBus, reminderWorker, cache, scheduleCfg, &logger)
	calendarService := service.NewCalendarAssembler(db, db, scheduleCfg, &logger)
	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, bookingService, calendarService, exporter, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().Msg("dealerdesk started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

// catalogFile is the bookable inventory plus the slot templates and
// holiday calendar, owned by back-office tooling.
type catalogFile struct {
	Vehicles     []models.Vehicle     `yaml:"vehicles"`
	ServiceTypes []models.ServiceType `yaml:"service_types"`
	TimeSlots    []models.TimeSlot    `yaml:"time_slots"`
	Holidays     []models.Holiday     `yaml:"holidays"`
}

func loadConfigAndLogger() (*config.Config, *catalogFile, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}
	catalogData, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Msgf("failed to read %s", catalogPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(catalogData, &catalog); err != nil {
		logger.Error().Err(err).Msg("failed to parse catalog file")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, &catalog, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create database directory")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("failed to create exports directory")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, catalog *catalogFile, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, cfg.ScheduleConfig(), logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return nil, err
	}

	ctx := context.Background()
	if err := db.SeedCatalog(ctx, catalog.Vehicles, catalog.ServiceTypes); err != nil {
		logger.Error().Err(err).Msg("failed to seed catalog")
	}
	if err := db.SeedTimeSlots(ctx, catalog.TimeSlots); err != nil {
		logger.Error().Err(err).Msg("failed to seed time slots")
	}
	if err := db.SeedHolidays(ctx, catalog.Holidays); err != nil {
		logger.Error().Err(err).Msg("failed to seed holidays")
	}
	return db, nil
}

// initAvailabilityCache wires redis behind the failover cache when
// enabled, otherwise the in-memory cache alone.
func initAvailabilityCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.AvailabilityCache) {
	memory := repository.NewMemoryAvailabilityCache(cfg.CacheTTL())

	if !cfg.Redis.Enabled {
		return nil, memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory availability cache")
		_ = client.Close()
		return nil, memory
	}

	primary := repository.NewRedisAvailabilityCache(client, cfg.CacheTTL())
	return client, repository.NewFailoverAvailabilityCache(primary, memory, logger)
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logger.With().Str("component", "booking-events").Logger()
	handler := func(event *events.Event) error {
		audit.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
		events.EventBookingNoShow,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", server.Addr).Msg("metrics server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
