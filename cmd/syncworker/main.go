package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"calsync/internal/broker"
	"calsync/internal/config"
	"calsync/internal/domain"
	"calsync/internal/events"
	"calsync/internal/google"
	"calsync/internal/logging"
	"calsync/internal/metrics"
	"calsync/internal/repository"
	"calsync/internal/syncer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, store, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = repository.Close(redisClient) }()

	calendarService, err := initCalendar(ctx, cfg, &logger)
	if err != nil {
		return err
	}

	conn, err := broker.Connect(cfg.Broker.URL)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка подключения к брокеру")
		return err
	}
	defer conn.Close()

	ch, err := broker.OpenChannel(conn, cfg.Broker.Prefetch)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка открытия канала")
		return err
	}
	defer ch.Close()

	if err := broker.DeclareTopology(ch, cfg.RetryDelay()); err != nil {
		logger.Error().Err(err).Msg("Ошибка объявления топологии")
		return err
	}

	deliveries, err := broker.Consume(ch, broker.QueueSync, "calendar-sync-worker")
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка подписки на очередь")
		return err
	}

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		srv := startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	eventBus := events.NewEventBus()
	subscribeSyncEvents(eventBus, &logger)

	publisher := broker.NewPublisher(ch)
	consumer := syncer.NewConsumer(store, calendarService, publisher, publisher, eventBus, syncer.Options{
		MaxRetries:        cfg.Sync.MaxRetries,
		RateLimitRequests: cfg.Sync.RateLimit.MaxRequests,
		RateLimitWindow:   cfg.RateLimitWindow(),
	}, &logger)

	logger.Info().
		Str("queue", broker.QueueSync).
		Int("prefetch", cfg.Broker.Prefetch).
		Msg("Воркер синхронизации запущен...")
	consumer.Run(ctx, deliveries)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	return cfg, logging.Component(baseLogger, "sync-main"), closer, nil
}

// initStore wires the rate-limit/cache store. With memory_fallback enabled the
// worker keeps limiting locally through Redis outages instead of failing every
// delivery closed; without it an unreachable Redis is fatal at startup.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.Store, error) {
	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		if !cfg.Redis.MemoryFallback {
			logger.Error().Err(err).Msg("Redis недоступен")
			_ = repository.Close(redisClient)
			return nil, nil, err
		}
		logger.Warn().Err(err).Msg("Redis недоступен, включен in-memory fallback")
	}

	primary := repository.NewRedisStore(redisClient)
	if cfg.Redis.MemoryFallback {
		return redisClient, repository.NewFailoverStore(primary, repository.NewMemoryStore(), logger), nil
	}
	return redisClient, primary, nil
}

func initCalendar(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*google.CalendarService, error) {
	service := google.NewCalendarService(cfg.Google)

	tokenPath := os.Getenv("GOOGLE_TOKEN_FILE")
	if tokenPath == "" {
		tokenPath = "configs/token.json"
	}

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", tokenPath)
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга token.json")
		return nil, err
	}

	if err := service.SetToken(ctx, &token); err != nil {
		logger.Error().Err(err).Msg("Ошибка применения токена")
		return nil, err
	}

	logger.Info().Str("calendar_id", cfg.Google.CalendarID).Msg("Calendar service initialized successfully")
	return service, nil
}

func startMetricsServer(port int, logger *zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return srv
}

func subscribeSyncEvents(bus *events.EventBus, logger *zerolog.Logger) {
	decode := func(ev *events.Event) (events.SyncEventPayload, error) {
		var payload events.SyncEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	bus.Subscribe(events.EventSyncFailed, func(ev *events.Event) error {
		payload, err := decode(ev)
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Warn().
			Str("user_id", payload.UserID).
			Str("correlation_id", payload.CorrelationID).
			Str("operation", payload.Operation).
			Bool("retryable", payload.Retryable).
			Str("error", payload.Error).
			Msg("event bus: sync failed")
		return nil
	})
}
