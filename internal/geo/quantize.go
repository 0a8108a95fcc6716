// Package geo turns floating point coordinates into stable cache key fragments.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// MaxPrecision keeps round(value * 10^precision) inside int64 for |value| <= 180.
const MaxPrecision = 15

var (
	// ErrInvalidCoordinate is returned for latitude/longitude outside the valid ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	errInvalidPrecision = errors.New("invalid precision")
)

// Quantize computes round(value * 10^precision).
func Quantize(value float64, precision int) int64 {
	return int64(math.Round(value * math.Pow10(precision)))
}

// Dequantize maps a quantized value back to degrees.
func Dequantize(value int64, precision int) float64 {
	return float64(value) / math.Pow10(precision)
}

// ValidateCoordinates fails fast on out-of-range or non-finite input. Values are never clamped.
func ValidateCoordinates(latitude, longitude float64) error {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90, got %v", ErrInvalidCoordinate, latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180, got %v", ErrInvalidCoordinate, longitude)
	}
	return nil
}

// Point is a quantized latitude/longitude pair.
type Point struct {
	Lat int64
	Lon int64
}

// Key builds "<prefix>:<lat>,<lon>:<hour>", the hour rendered as ISO-8601 UTC truncated to the hour.
func (p Point) Key(prefix string, hour time.Time) string {
	return prefix + ":" + strconv.FormatInt(p.Lat, 10) + "," + strconv.FormatInt(p.Lon, 10) + ":" + FormatHour(hour)
}

// FormatHour renders t truncated to the hour, e.g. 2024-07-12T10:00:00Z.
func FormatHour(t time.Time) string {
	return TruncateHour(t).Format(time.RFC3339)
}

// TruncateHour returns t in UTC with minutes, seconds and nanoseconds zeroed.
func TruncateHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// Quantizer applies one configured precision to both axes.
type Quantizer struct {
	precision int
}

// NewQuantizer returns a Quantizer for a precision in [0, MaxPrecision].
func NewQuantizer(precision int) (Quantizer, error) {
	if precision < 0 || precision > MaxPrecision {
		return Quantizer{}, fmt.Errorf("%w: must be between 0 and %d, got %d", errInvalidPrecision, MaxPrecision, precision)
	}
	return Quantizer{precision: precision}, nil
}

// Precision returns the number of decimal places kept.
func (q Quantizer) Precision() int {
	return q.precision
}

// Point validates the coordinates and quantizes them.
func (q Quantizer) Point(latitude, longitude float64) (Point, error) {
	if err := ValidateCoordinates(latitude, longitude); err != nil {
		return Point{}, err
	}
	return Point{
		Lat: Quantize(latitude, q.precision),
		Lon: Quantize(longitude, q.precision),
	}, nil
}
