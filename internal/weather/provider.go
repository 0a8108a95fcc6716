package weather

import (
	"context"
	"time"

	"github.com/i474232898/weather-lookup/internal/geo"
)

// Provider abstracts the upstream timeline API.
type Provider interface {
	// Name prefixes cache keys, e.g. "tomorrow" -> "tomorrow-timeline:...".
	Name() string
	FetchTimeline(ctx context.Context, latitude, longitude float64) (*TimelineResponse, error)
}

// CacheStore is a key-value store with per-key expiration.
type CacheStore interface {
	// Get returns ok=false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// TimelineFetch describes one upstream round trip after its snapshots were cached.
type TimelineFetch struct {
	Provider  string
	Point     geo.Point
	Precision int
	Latitude  float64
	Longitude float64
	FetchedAt time.Time
	Snapshots *SnapshotCollection
}

// TimelineObserver is notified after every upstream fetch.
type TimelineObserver interface {
	TimelineFetched(ctx context.Context, fetch TimelineFetch) error
}
