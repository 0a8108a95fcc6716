package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// maxHourlyWindow is the length of one upstream timeline.
const maxHourlyWindow = 120

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. health may be nil.
func RegisterRoutes(app *fiber.App, service *weather.Service, health Pinger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "degraded",
					"service": "weather-lookup",
					"error":   err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})

	v1 := app.Group("/api/v1")

	// Errors inside the report are returned in its errorMessage field.
	v1.Get("/weather", func(c *fiber.Ctx) error {
		q, err := parseCoordinateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report := service.Report(c.UserContext(), *q.Latitude, *q.Longitude)
		return c.JSON(report)
	})

	v1.Get("/weather/hourly", func(c *fiber.Ctx) error {
		var req hourlyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		lat, lon := *req.Location.Latitude, *req.Location.Longitude
		snapshots, err := service.Hourly(c.UserContext(), lat, lon, req.Hours)
		if err != nil {
			return toFiberError(err)
		}

		entries := make([]hourlyEntry, 0, len(snapshots))
		for _, s := range snapshots {
			entries = append(entries, hourlyEntry{
				UTC:                 s.Timestamp(),
				TemperatureApparent: s.ApparentTemperature(),
				WeatherDescription:  string(s.Description()),
			})
		}

		return c.JSON(fiber.Map{
			"latitude":  lat,
			"longitude": lon,
			"snapshots": entries,
		})
	})
}

type hourlyEntry struct {
	UTC                 time.Time `json:"utc"`
	TemperatureApparent float64   `json:"temperature_apparent"`
	WeatherDescription  string    `json:"weather_description"`
}

// toFiberError maps the weather error taxonomy onto HTTP statuses.
func toFiberError(err error) error {
	switch {
	case errors.Is(err, weather.ErrInvalidCoordinate), errors.Is(err, weather.ErrInvalidWindow):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrSnapshotNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrUpstreamUnavailable), errors.Is(err, weather.ErrTranslationFailure):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
}

// coordinateQuery holds query parameters for identifying a location.
type coordinateQuery struct {
	Latitude  *float64 `validate:"required,gte=-90,lte=90"`
	Longitude *float64 `validate:"required,gte=-180,lte=180"`
}

func parseCoordinateQuery(c *fiber.Ctx) (coordinateQuery, error) {
	var q coordinateQuery

	var err error
	if q.Latitude, err = parseOptionalFloat(c, "latitude"); err != nil {
		return q, err
	}
	if q.Longitude, err = parseOptionalFloat(c, "longitude"); err != nil {
		return q, err
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

func parseOptionalFloat(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

// hourlyQuery holds query parameters for the hourly endpoint.
// Hours of zero selects the configured default window.
type hourlyQuery struct {
	Location coordinateQuery
	Hours    int `validate:"gte=0,lte=120"`
}

func (h *hourlyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseCoordinateQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	if s := c.Query("hours"); s != "" {
		hours, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("hours must be an integer between 0 and %d", maxHourlyWindow)
		}
		h.Hours = hours
	}
	return nil
}
