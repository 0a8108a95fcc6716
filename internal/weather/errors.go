package weather

import (
	"errors"

	"github.com/i474232898/weather-lookup/internal/geo"
)

var (
	// ErrInvalidCoordinate is returned for out-of-range coordinates or malformed timestamps.
	ErrInvalidCoordinate = geo.ErrInvalidCoordinate

	// ErrUpstreamUnavailable is returned when the provider exhausted retries or failed non-retryably.
	ErrUpstreamUnavailable = errors.New("upstream weather provider unavailable")

	// ErrTranslationFailure is returned when a provider response lacks the expected structure.
	ErrTranslationFailure = errors.New("weather timeline translation failed")

	// ErrSnapshotNotFound is returned when a fresh timeline does not cover the requested hour.
	ErrSnapshotNotFound = errors.New("weather snapshot not found")

	// ErrConstruction is returned when a snapshot is built with a required field missing.
	ErrConstruction = errors.New("weather snapshot construction failed")

	// ErrInvalidWindow is returned for a non-positive aggregation window.
	ErrInvalidWindow = errors.New("aggregation window must be a positive number of hours")

	// ErrCacheStore is returned when snapshots could not be written to the cache store.
	ErrCacheStore = errors.New("cache store write failed")
)
