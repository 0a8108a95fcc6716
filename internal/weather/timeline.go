package weather

import (
	"fmt"
	"time"
)

// TimelineResponse is the provider's timeline payload:
// data.timelines[0].intervals[] of {startTime, values}.
type TimelineResponse struct {
	Data *TimelineData `json:"data"`
}

type TimelineData struct {
	Timelines []Timeline `json:"timelines"`
}

type Timeline struct {
	Timestep  string             `json:"timestep"`
	StartTime string             `json:"startTime"`
	EndTime   string             `json:"endTime"`
	Intervals []TimelineInterval `json:"intervals"`
}

type TimelineInterval struct {
	StartTime string         `json:"startTime"`
	Values    IntervalValues `json:"values"`
}

// IntervalValues holds the requested fields. Only TemperatureApparent and
// WeatherCode feed a Snapshot; the rest are carried for completeness.
type IntervalValues struct {
	TemperatureApparent     *float64 `json:"temperatureApparent"`
	WeatherCode             *int     `json:"weatherCode"`
	CloudCover              *float64 `json:"cloudCover,omitempty"`
	PrecipitationIntensity  *float64 `json:"precipitationIntensity,omitempty"`
	PrecipitationType       *int     `json:"precipitationType,omitempty"`
	ThunderstormProbability *float64 `json:"thunderstormProbability,omitempty"`
	UVIndex                 *float64 `json:"uvIndex,omitempty"`
	Visibility              *float64 `json:"visibility,omitempty"`
	WindDirection           *float64 `json:"windDirection,omitempty"`
	WindGust                *float64 `json:"windGust,omitempty"`
	WindSpeed               *float64 `json:"windSpeed,omitempty"`
}

// TranslateTimeline turns a whole timeline response into a SnapshotCollection.
// A missing data, timelines or intervals level is a translation failure.
func TranslateTimeline(resp *TimelineResponse) (*SnapshotCollection, error) {
	if resp == nil || resp.Data == nil {
		return nil, fmt.Errorf("%w: no data found in the response", ErrTranslationFailure)
	}
	if len(resp.Data.Timelines) == 0 {
		return nil, fmt.Errorf("%w: no timelines found in the response", ErrTranslationFailure)
	}
	intervals := resp.Data.Timelines[0].Intervals
	if intervals == nil {
		return nil, fmt.Errorf("%w: no intervals found in the response", ErrTranslationFailure)
	}

	snapshots := make([]Snapshot, 0, len(intervals))
	for i, interval := range intervals {
		s, err := TranslateInterval(interval)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", i, err)
		}
		snapshots = append(snapshots, s)
	}

	return NewSnapshotCollection(snapshots...), nil
}

// TranslateInterval maps one interval into a Snapshot. The apparent temperature
// is passed through in provider units.
func TranslateInterval(interval TimelineInterval) (Snapshot, error) {
	ts, err := time.Parse(time.RFC3339, interval.StartTime)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: invalid startTime %q: %v", ErrTranslationFailure, interval.StartTime, err)
	}
	if interval.Values.TemperatureApparent == nil {
		return Snapshot{}, fmt.Errorf("%w: interval %s has no temperatureApparent", ErrConstruction, interval.StartTime)
	}

	description := DescriptionUnknown
	if interval.Values.WeatherCode != nil {
		description = DescribeWeatherCode(*interval.Values.WeatherCode)
	}

	return NewSnapshot(ts.UTC(), *interval.Values.TemperatureApparent, description)
}
