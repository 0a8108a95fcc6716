package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/archive"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/events"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

// cacheBackend is what the repository and the health check need from a store.
type cacheBackend interface {
	weather.CacheStore
	httpapi.Pinger
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("weather-lookup stopped")
	}
}

// run wires every component and serves until a signal arrives. Resources
// opened along the way are closed on return, including on setup failures.
func run(cfg *config.AppConfig, log *logrus.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.WithError(err).Warn("error closing resource")
			}
		}
	}()

	// Cache store shared by every request.
	var cache cacheBackend
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		cache = store.NewMemoryStore(0)
	default:
		redisStore, err := store.NewRedisStore(store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return fmt.Errorf("connect cache store: %w", err)
		}
		closers = append(closers, redisStore)
		cache = redisStore
	}

	// Optional observers of every upstream fetch.
	var observers []weather.TimelineObserver
	if cfg.ArchiveDatabaseURL != "" {
		a, err := archive.New(ctx, cfg.ArchiveDatabaseURL, log)
		if err != nil {
			return fmt.Errorf("open snapshot archive: %w", err)
		}
		closers = append(closers, a)
		observers = append(observers, a)
	}
	if cfg.KafkaEnabled() {
		p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		closers = append(closers, p)
		observers = append(observers, p)
	}

	// Upstream client with resilience (rate limit + backoff + circuit breaker).
	httpClient := &http.Client{
		Timeout: cfg.UpstreamHTTPTimeout,
	}
	upstream := providers.NewTomorrowIOProvider(httpClient, providers.TomorrowIOConfig{
		APIKey:        cfg.TomorrowIOAPIKey,
		BaseURL:       cfg.TomorrowIOBaseURL,
		MaxAttempts:   cfg.UpstreamMaxAttempts,
		BaseDelay:     cfg.UpstreamRetryBaseDelay,
		RatePerSecond: cfg.UpstreamRatePerSecond,
		Logger:        log,
	})

	repo, err := weather.NewRepository(cache, upstream, weather.RepositoryConfig{
		Precision: cfg.LatLonPrecision,
		TTL:       cfg.CacheTTL,
	}, weather.WithObservers(observers...), weather.WithLogger(log))
	if err != nil {
		return fmt.Errorf("create weather repository: %w", err)
	}

	service := weather.NewService(repo, weather.ServiceConfig{
		HighLowWindowHours: cfg.HighLowWindowHours,
		DefaultWindowHours: cfg.DefaultWindowHours,
	}, log)

	// Scheduler that keeps configured locations warm.
	sched := scheduler.New(cfg.WarmLocations, cfg.WarmInterval, service, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service, cache)

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("fiber server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	log.Info("shutdown complete")
	return nil
}
