package weather

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCodecRoundTrip(t *testing.T) {
	snapshots := []Snapshot{
		mustSnapshot(t, time.Date(2024, 7, 12, 10, 15, 0, 0, time.UTC), 25.0, DescriptionClearSunny),
		mustSnapshot(t, time.Date(2024, 1, 2, 3, 4, 5, 6, time.FixedZone("CET", 3600)), -12.75, DescriptionHeavySnow),
		mustSnapshot(t, time.Date(2030, 12, 31, 23, 0, 0, 0, time.UTC), 0, DescriptionUnknown),
	}

	for _, s := range snapshots {
		raw, err := EncodeSnapshot(s)
		require.NoError(t, err)

		got, err := DecodeSnapshot(raw)
		require.NoError(t, err)
		assert.True(t, got.Equal(s), "round trip of %s", raw)
	}
}

func TestEncodeSnapshotFormat(t *testing.T) {
	s := mustSnapshot(t, time.Date(2024, 7, 12, 10, 0, 0, 0, time.UTC), 25.5, DescriptionClearSunny)

	raw, err := EncodeSnapshot(s)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	assert.Equal(t, map[string]any{
		"utc":                  "2024-07-12T10:00:00Z",
		"temperature_apparent": 25.5,
		"weather_description":  "Clear, Sunny",
	}, fields)
}

func TestDecodeSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "not-json"},
		{name: "missing utc", raw: `{"temperature_apparent":1,"weather_description":"Fog"}`},
		{name: "null temperature", raw: `{"utc":"2024-07-12T10:00:00Z","temperature_apparent":null,"weather_description":"Fog"}`},
		{name: "missing description", raw: `{"utc":"2024-07-12T10:00:00Z","temperature_apparent":1}`},
		{name: "empty description", raw: `{"utc":"2024-07-12T10:00:00Z","temperature_apparent":1,"weather_description":""}`},
		{name: "bad utc", raw: `{"utc":"yesterday","temperature_apparent":1,"weather_description":"Fog"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot(tt.raw)
			assert.ErrorIs(t, err, ErrConstruction)
		})
	}
}
