package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// cachedSnapshot is the cache store record. Pointer fields let decoding tell
// a missing field apart from a zero value.
type cachedSnapshot struct {
	UTC                 *string  `json:"utc"`
	TemperatureApparent *float64 `json:"temperature_apparent"`
	WeatherDescription  *string  `json:"weather_description"`
}

// EncodeSnapshot serializes s into the cache record format.
func EncodeSnapshot(s Snapshot) (string, error) {
	utc := s.Timestamp().UTC().Format(time.RFC3339)
	temp := s.ApparentTemperature()
	desc := string(s.Description())

	b, err := json.Marshal(cachedSnapshot{
		UTC:                 &utc,
		TemperatureApparent: &temp,
		WeatherDescription:  &desc,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(b), nil
}

// DecodeSnapshot parses a cache record. Missing or null fields fail with ErrConstruction.
func DecodeSnapshot(raw string) (Snapshot, error) {
	var rec cachedSnapshot
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Snapshot{}, fmt.Errorf("%w: failed to decode cached snapshot: %v", ErrConstruction, err)
	}

	switch {
	case rec.UTC == nil:
		return Snapshot{}, fmt.Errorf("%w: cached snapshot has no utc", ErrConstruction)
	case rec.TemperatureApparent == nil:
		return Snapshot{}, fmt.Errorf("%w: cached snapshot has no temperature_apparent", ErrConstruction)
	case rec.WeatherDescription == nil:
		return Snapshot{}, fmt.Errorf("%w: cached snapshot has no weather_description", ErrConstruction)
	}

	ts, err := time.Parse(time.RFC3339, *rec.UTC)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: invalid utc %q: %v", ErrConstruction, *rec.UTC, err)
	}

	return NewSnapshot(ts, *rec.TemperatureApparent, Description(*rec.WeatherDescription))
}
