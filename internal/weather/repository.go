package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-lookup/internal/geo"
)

// DefaultCacheTTL is how long each cached hour lives when no TTL is configured.
const DefaultCacheTTL = 30 * time.Minute

// RepositoryConfig holds the cache-aside tuning knobs.
type RepositoryConfig struct {
	// Precision is the number of decimal places kept when deriving cache keys.
	Precision int
	// TTL is the expiration of every cached snapshot. Zero means DefaultCacheTTL.
	TTL time.Duration
}

// RepositoryOption customizes a Repository.
type RepositoryOption func(*Repository)

// WithObservers registers observers notified after every upstream fetch.
func WithObservers(observers ...TimelineObserver) RepositoryOption {
	return func(r *Repository) {
		for _, o := range observers {
			if o != nil {
				r.observers = append(r.observers, o)
			}
		}
	}
}

// WithClock overrides the time source used for "now".
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) RepositoryOption {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// Repository resolves hourly snapshots cache-aside: hits are decoded straight
// from the cache store; a miss fetches the provider's whole timeline, caches
// every hour under its own key and then answers from the fresh collection.
//
// Concurrent misses for the same location each call the provider and overwrite
// the same keys. Writes are idempotent so the last writer wins.
type Repository struct {
	cache     CacheStore
	upstream  Provider
	quantizer geo.Quantizer
	ttl       time.Duration
	keyPrefix string
	observers []TimelineObserver
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewRepository creates a Repository. cache and upstream are required.
func NewRepository(cache CacheStore, upstream Provider, cfg RepositoryConfig, opts ...RepositoryOption) (*Repository, error) {
	if cache == nil {
		return nil, errors.New("cache store is required")
	}
	if upstream == nil {
		return nil, errors.New("upstream provider is required")
	}
	quantizer, err := geo.NewQuantizer(cfg.Precision)
	if err != nil {
		return nil, fmt.Errorf("lat/lon precision: %w", err)
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("cache ttl must not be negative, got %s", cfg.TTL)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	r := &Repository{
		cache:     cache,
		upstream:  upstream,
		quantizer: quantizer,
		ttl:       ttl,
		keyPrefix: upstream.Name() + "-timeline",
		now:       time.Now,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "weather_repository")
	return r, nil
}

// CacheKey returns the cache key for a location and hour.
func (r *Repository) CacheKey(latitude, longitude float64, hour time.Time) (string, error) {
	point, err := r.quantizer.Point(latitude, longitude)
	if err != nil {
		return "", err
	}
	return point.Key(r.keyPrefix, hour), nil
}

// SnapshotFor returns the snapshot for the hour containing hour.
func (r *Repository) SnapshotFor(ctx context.Context, latitude, longitude float64, hour time.Time) (Snapshot, error) {
	point, err := r.quantizer.Point(latitude, longitude)
	if err != nil {
		return Snapshot{}, err
	}
	if hour.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: hour is required", ErrInvalidCoordinate)
	}
	hour = geo.TruncateHour(hour)
	key := point.Key(r.keyPrefix, hour)

	raw, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.log.WithError(err).WithField("key", key).Warn("cache read failed, treating as miss")
	case ok:
		r.log.WithField("key", key).Debug("cache hit")
		s, err := DecodeSnapshot(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("cached snapshot %s: %w", key, err)
		}
		return s, nil
	default:
		r.log.WithField("key", key).Debug("cache miss")
	}

	collection, err := r.populate(ctx, latitude, longitude, point)
	if err != nil {
		return Snapshot{}, err
	}

	s, ok := collection.ByTimestamp(hour)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s not in fetched timeline", ErrSnapshotNotFound, key)
	}
	return s, nil
}

// populate fetches the full timeline and writes every hour to the cache before returning.
func (r *Repository) populate(ctx context.Context, latitude, longitude float64, point geo.Point) (*SnapshotCollection, error) {
	resp, err := r.upstream.FetchTimeline(ctx, latitude, longitude)
	if err != nil {
		if !errors.Is(err, ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
		r.log.WithError(err).WithField("provider", r.upstream.Name()).Error("timeline fetch failed")
		return nil, err
	}

	collection, err := TranslateTimeline(resp)
	if err != nil {
		return nil, err
	}

	for _, s := range collection.Snapshots() {
		value, err := EncodeSnapshot(s)
		if err != nil {
			return nil, err
		}
		key := point.Key(r.keyPrefix, s.Timestamp())
		if err := r.cache.Set(ctx, key, value, r.ttl); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCacheStore, key, err)
		}
	}

	r.log.WithFields(logrus.Fields{
		"provider":  r.upstream.Name(),
		"snapshots": collection.Len(),
		"ttl":       r.ttl.String(),
	}).Info("timeline cached")

	r.notify(ctx, TimelineFetch{
		Provider:  r.upstream.Name(),
		Point:     point,
		Precision: r.quantizer.Precision(),
		Latitude:  latitude,
		Longitude: longitude,
		FetchedAt: r.now().UTC(),
		Snapshots: collection,
	})

	return collection, nil
}

func (r *Repository) notify(ctx context.Context, fetch TimelineFetch) {
	for _, o := range r.observers {
		if err := o.TimelineFetched(ctx, fetch); err != nil {
			r.log.WithError(err).WithField("observer", fmt.Sprintf("%T", o)).Warn("timeline observer failed")
		}
	}
}

// CurrentFeelsLikeTemperature returns the apparent temperature for the current hour.
func (r *Repository) CurrentFeelsLikeTemperature(ctx context.Context, latitude, longitude float64) (float64, error) {
	s, err := r.SnapshotFor(ctx, latitude, longitude, r.now())
	if err != nil {
		return 0, err
	}
	return s.ApparentTemperature(), nil
}

// CurrentConditions returns the condition description for the current hour.
func (r *Repository) CurrentConditions(ctx context.Context, latitude, longitude float64) (Description, error) {
	s, err := r.SnapshotFor(ctx, latitude, longitude, r.now())
	if err != nil {
		return "", err
	}
	return s.Description(), nil
}

// Window collects the snapshots for hours [now, now+hours).
func (r *Repository) Window(ctx context.Context, latitude, longitude float64, hours int) (*SnapshotCollection, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, hours)
	}
	if err := geo.ValidateCoordinates(latitude, longitude); err != nil {
		return nil, err
	}

	start := geo.TruncateHour(r.now())
	snapshots := make([]Snapshot, 0, hours)
	for i := 0; i < hours; i++ {
		s, err := r.SnapshotFor(ctx, latitude, longitude, start.Add(time.Duration(i)*time.Hour))
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return NewSnapshotCollection(snapshots...), nil
}

// FeelsLikeHighLow returns the apparent temperature range over the next windowHours hours.
func (r *Repository) FeelsLikeHighLow(ctx context.Context, latitude, longitude float64, windowHours int) (HighLow, error) {
	collection, err := r.Window(ctx, latitude, longitude, windowHours)
	if err != nil {
		return HighLow{}, err
	}
	hl, ok := collection.HighLow()
	if !ok {
		return HighLow{}, fmt.Errorf("%w: empty window", ErrSnapshotNotFound)
	}
	return hl, nil
}
