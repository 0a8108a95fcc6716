package weather

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-lookup/internal/geo"
)

// Description is a human-readable weather condition.
type Description string

const (
	DescriptionUnknown           Description = "Unknown"
	DescriptionClearSunny        Description = "Clear, Sunny"
	DescriptionMostlyClear       Description = "Mostly Clear"
	DescriptionPartlyCloudy      Description = "Partly Cloudy"
	DescriptionMostlyCloudy      Description = "Mostly Cloudy"
	DescriptionCloudy            Description = "Cloudy"
	DescriptionFog               Description = "Fog"
	DescriptionLightFog          Description = "Light Fog"
	DescriptionDrizzle           Description = "Drizzle"
	DescriptionRain              Description = "Rain"
	DescriptionLightRain         Description = "Light Rain"
	DescriptionHeavyRain         Description = "Heavy Rain"
	DescriptionSnow              Description = "Snow"
	DescriptionFlurries          Description = "Flurries"
	DescriptionLightSnow         Description = "Light Snow"
	DescriptionHeavySnow         Description = "Heavy Snow"
	DescriptionFreezingDrizzle   Description = "Freezing Drizzle"
	DescriptionFreezingRain      Description = "Freezing Rain"
	DescriptionLightFreezingRain Description = "Light Freezing Rain"
	DescriptionHeavyFreezingRain Description = "Heavy Freezing Rain"
	DescriptionIcePellets        Description = "Ice Pellets"
	DescriptionHeavyIcePellets   Description = "Heavy Ice Pellets"
	DescriptionLightIcePellets   Description = "Light Ice Pellets"
	DescriptionThunderstorm      Description = "Thunderstorm"
)

// weatherCodeDescriptions is the provider's closed weather code set.
var weatherCodeDescriptions = map[int]Description{
	0:    DescriptionUnknown,
	1000: DescriptionClearSunny,
	1100: DescriptionMostlyClear,
	1101: DescriptionPartlyCloudy,
	1102: DescriptionMostlyCloudy,
	1001: DescriptionCloudy,
	2000: DescriptionFog,
	2100: DescriptionLightFog,
	4000: DescriptionDrizzle,
	4001: DescriptionRain,
	4200: DescriptionLightRain,
	4201: DescriptionHeavyRain,
	5000: DescriptionSnow,
	5001: DescriptionFlurries,
	5100: DescriptionLightSnow,
	5101: DescriptionHeavySnow,
	6000: DescriptionFreezingDrizzle,
	6001: DescriptionFreezingRain,
	6200: DescriptionLightFreezingRain,
	6201: DescriptionHeavyFreezingRain,
	7000: DescriptionIcePellets,
	7101: DescriptionHeavyIcePellets,
	7102: DescriptionLightIcePellets,
	8000: DescriptionThunderstorm,
}

// DescribeWeatherCode maps a provider weather code to a Description.
// Codes outside the table map to DescriptionUnknown.
func DescribeWeatherCode(code int) Description {
	if d, ok := weatherCodeDescriptions[code]; ok {
		return d
	}
	return DescriptionUnknown
}

// Snapshot is one hour's weather for a location. The zero value is not valid; use NewSnapshot.
type Snapshot struct {
	timestamp           time.Time
	apparentTemperature float64
	description         Description
}

// NewSnapshot builds a Snapshot with its timestamp truncated to the hour in UTC.
func NewSnapshot(timestamp time.Time, apparentTemperature float64, description Description) (Snapshot, error) {
	if timestamp.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: timestamp is required", ErrConstruction)
	}
	if description == "" {
		return Snapshot{}, fmt.Errorf("%w: weather description is required", ErrConstruction)
	}
	return Snapshot{
		timestamp:           geo.TruncateHour(timestamp),
		apparentTemperature: apparentTemperature,
		description:         description,
	}, nil
}

func (s Snapshot) Timestamp() time.Time { return s.timestamp }

func (s Snapshot) ApparentTemperature() float64 { return s.apparentTemperature }

func (s Snapshot) Description() Description { return s.description }

// Equal reports whether both snapshots carry the same hour, temperature and description.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.timestamp.Equal(other.timestamp) &&
		s.apparentTemperature == other.apparentTemperature &&
		s.description == other.description
}

// HighLow is the apparent temperature range over an aggregation window.
type HighLow struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}
