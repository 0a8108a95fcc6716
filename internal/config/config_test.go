package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/geo"
)

var configKeys = []string{
	"TOMORROW_IO_API_KEY", "TOMORROW_IO_BASE_URL", "LAT_LON_PRECISION", "REDIS_CACHE_EXPIRATION_IN_MIN",
	"UPSTREAM_MAX_ATTEMPTS", "UPSTREAM_RETRY_BASE_DELAY", "UPSTREAM_HTTP_TIMEOUT", "UPSTREAM_RATE_PER_SECOND",
	"HIGH_LOW_WINDOW_HOURS", "DEFAULT_WINDOW_HOURS", "CACHE_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"ARCHIVE_DATABASE_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "WARM_LOCATIONS", "WARM_INTERVAL",
	"PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key so the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOMORROW_IO_API_KEY", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.TomorrowIOAPIKey)
	assert.Equal(t, "https://api.tomorrow.io/v4/timelines", cfg.TomorrowIOBaseURL)
	assert.Equal(t, 5, cfg.LatLonPrecision)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.UpstreamMaxAttempts)
	assert.Equal(t, time.Second, cfg.UpstreamRetryBaseDelay)
	assert.Equal(t, 10*time.Second, cfg.UpstreamHTTPTimeout)
	assert.Equal(t, 3.0, cfg.UpstreamRatePerSecond)
	assert.Equal(t, 5, cfg.HighLowWindowHours)
	assert.Equal(t, 24, cfg.DefaultWindowHours)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 15*time.Minute, cfg.WarmInterval)
	assert.Empty(t, cfg.WarmLocations)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "8080", cfg.Port)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOMORROW_IO_API_KEY", "secret")
	t.Setenv("LAT_LON_PRECISION", "8")
	t.Setenv("REDIS_CACHE_EXPIRATION_IN_MIN", "10")
	t.Setenv("UPSTREAM_RETRY_BASE_DELAY", "250ms")
	t.Setenv("CACHE_BACKEND", "Memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("KAFKA_TOPIC", "weather.timeline")
	t.Setenv("WARM_LOCATIONS", "37.7749,-122.4194; 51.5072,-0.1276")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.LatLonPrecision)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.UpstreamRetryBaseDelay)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []geo.Coordinate{
		{Latitude: 37.7749, Longitude: -122.4194},
		{Latitude: 51.5072, Longitude: -0.1276},
	}, cfg.WarmLocations)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing api key", env: map[string]string{}},
		{name: "precision too large", env: map[string]string{"LAT_LON_PRECISION": "16"}},
		{name: "negative precision", env: map[string]string{"LAT_LON_PRECISION": "-1"}},
		{name: "zero attempts", env: map[string]string{"UPSTREAM_MAX_ATTEMPTS": "0"}},
		{name: "bad delay", env: map[string]string{"UPSTREAM_RETRY_BASE_DELAY": "soon"}},
		{name: "bad rate", env: map[string]string{"UPSTREAM_RATE_PER_SECOND": "fast"}},
		{name: "unknown backend", env: map[string]string{"CACHE_BACKEND": "memcached"}},
		{name: "bad warm location", env: map[string]string{"WARM_LOCATIONS": "95,0"}},
		{name: "warm interval too short", env: map[string]string{"WARM_INTERVAL": "10s"}},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.name != "missing api key" {
				t.Setenv("TOMORROW_IO_API_KEY", "secret")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
