package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-lookup/internal/geo"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type AppConfig struct {
	TomorrowIOAPIKey  string `validate:"required"`
	TomorrowIOBaseURL string `validate:"required,url"`

	// LatLonPrecision is the only precision used to derive cache keys.
	LatLonPrecision int           `validate:"gte=0,lte=15"`
	CacheTTL        time.Duration `validate:"gt=0"`

	UpstreamMaxAttempts    int           `validate:"gte=1"`
	UpstreamRetryBaseDelay time.Duration `validate:"gt=0"`
	UpstreamHTTPTimeout    time.Duration `validate:"gt=0"`
	UpstreamRatePerSecond  float64       `validate:"gte=0"`

	HighLowWindowHours int `validate:"gte=1"`
	DefaultWindowHours int `validate:"gte=1"`

	CacheBackend  string `validate:"oneof=redis memory"`
	RedisAddr     string `validate:"required_if=CacheBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// ArchiveDatabaseURL enables the Postgres archive when set.
	ArchiveDatabaseURL string
	// KafkaBrokers and KafkaTopic enable event publication when both are set.
	KafkaBrokers []string
	KafkaTopic   string

	// WarmLocations are refreshed every WarmInterval.
	WarmLocations []geo.Coordinate
	WarmInterval  time.Duration `validate:"gte=1m"`

	Port      string `validate:"required,numeric"`
	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=text json"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from the process environment.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		TomorrowIOAPIKey:  os.Getenv("TOMORROW_IO_API_KEY"),
		TomorrowIOBaseURL: getenvDefault("TOMORROW_IO_BASE_URL", "https://api.tomorrow.io/v4/timelines"),
		LatLonPrecision:   getenvInt("LAT_LON_PRECISION", 5),
		CacheTTL:          time.Duration(getenvInt("REDIS_CACHE_EXPIRATION_IN_MIN", 30)) * time.Minute,

		UpstreamMaxAttempts: getenvInt("UPSTREAM_MAX_ATTEMPTS", 5),

		HighLowWindowHours: getenvInt("HIGH_LOW_WINDOW_HOURS", 5),
		DefaultWindowHours: getenvInt("DEFAULT_WINDOW_HOURS", 24),

		CacheBackend:  strings.ToLower(getenvDefault("CACHE_BACKEND", CacheBackendRedis)),
		RedisAddr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),

		ArchiveDatabaseURL: os.Getenv("ARCHIVE_DATABASE_URL"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS"), ","),
		KafkaTopic:         os.Getenv("KAFKA_TOPIC"),

		Port:      getenvDefault("PORT", "8080"),
		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getenvDefault("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.UpstreamRetryBaseDelay, err = getenvDuration("UPSTREAM_RETRY_BASE_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.UpstreamHTTPTimeout, err = getenvDuration("UPSTREAM_HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	rate := getenvDefault("UPSTREAM_RATE_PER_SECOND", "3")
	if cfg.UpstreamRatePerSecond, err = strconv.ParseFloat(rate, 64); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_RATE_PER_SECOND: %w", err)
	}

	if cfg.WarmLocations, err = parseLocations(os.Getenv("WARM_LOCATIONS")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// KafkaEnabled reports whether event publication is configured.
func (c *AppConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// parseLocations reads "lat,lon;lat,lon".
func parseLocations(v string) ([]geo.Coordinate, error) {
	var locs []geo.Coordinate
	for _, part := range splitList(v, ";") {
		c, err := geo.ParseCoordinate(part)
		if err != nil {
			return nil, fmt.Errorf("invalid WARM_LOCATIONS entry %q: %w", part, err)
		}
		locs = append(locs, c)
	}
	return locs, nil
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
