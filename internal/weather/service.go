package weather

import (
	"context"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHighLowWindow is the window, in hours, for the low/high pair.
	DefaultHighLowWindow = 5
	// DefaultWindow is the window, in hours, for hourly listings.
	DefaultWindow = 24
)

// SnapshotRepository is the read side of Repository used by Service.
type SnapshotRepository interface {
	CurrentFeelsLikeTemperature(ctx context.Context, latitude, longitude float64) (float64, error)
	CurrentConditions(ctx context.Context, latitude, longitude float64) (Description, error)
	FeelsLikeHighLow(ctx context.Context, latitude, longitude float64, windowHours int) (HighLow, error)
	Window(ctx context.Context, latitude, longitude float64, hours int) (*SnapshotCollection, error)
}

// ServiceConfig sets the aggregation windows. Zero values take the defaults.
type ServiceConfig struct {
	HighLowWindowHours int
	DefaultWindowHours int
}

// Service exposes the named weather queries on top of a SnapshotRepository.
type Service struct {
	repo          SnapshotRepository
	highLowWindow int
	defaultWindow int
	log           logrus.FieldLogger
}

// NewService creates a new Service.
func NewService(repo SnapshotRepository, cfg ServiceConfig, log logrus.FieldLogger) *Service {
	if cfg.HighLowWindowHours <= 0 {
		cfg.HighLowWindowHours = DefaultHighLowWindow
	}
	if cfg.DefaultWindowHours <= 0 {
		cfg.DefaultWindowHours = DefaultWindow
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		repo:          repo,
		highLowWindow: cfg.HighLowWindowHours,
		defaultWindow: cfg.DefaultWindowHours,
		log:           log.WithField("component", "weather_service"),
	}
}

// HighLowWindow returns the configured low/high window in hours.
func (s *Service) HighLowWindow() int {
	return s.highLowWindow
}

func (s *Service) CurrentTemperature(ctx context.Context, latitude, longitude float64) (float64, error) {
	return s.repo.CurrentFeelsLikeTemperature(ctx, latitude, longitude)
}

func (s *Service) CurrentConditions(ctx context.Context, latitude, longitude float64) (Description, error) {
	return s.repo.CurrentConditions(ctx, latitude, longitude)
}

func (s *Service) HighLow(ctx context.Context, latitude, longitude float64) (HighLow, error) {
	return s.repo.FeelsLikeHighLow(ctx, latitude, longitude, s.highLowWindow)
}

func (s *Service) Low(ctx context.Context, latitude, longitude float64) (float64, error) {
	hl, err := s.HighLow(ctx, latitude, longitude)
	if err != nil {
		return 0, err
	}
	return hl.Low, nil
}

func (s *Service) High(ctx context.Context, latitude, longitude float64) (float64, error) {
	hl, err := s.HighLow(ctx, latitude, longitude)
	if err != nil {
		return 0, err
	}
	return hl.High, nil
}

// Hourly returns the snapshots for the next hours hours; hours <= 0 uses the default window.
func (s *Service) Hourly(ctx context.Context, latitude, longitude float64, hours int) ([]Snapshot, error) {
	if hours <= 0 {
		hours = s.defaultWindow
	}
	collection, err := s.repo.Window(ctx, latitude, longitude, hours)
	if err != nil {
		return nil, err
	}
	return collection.Snapshots(), nil
}

// Warm resolves the current hour so a cold location gets its whole timeline cached.
func (s *Service) Warm(ctx context.Context, latitude, longitude float64) error {
	_, err := s.repo.CurrentFeelsLikeTemperature(ctx, latitude, longitude)
	return err
}

// Report is the caller-facing answer for one location. Either the data fields
// or ErrorMessage are set, never both.
type Report struct {
	Temperature  *float64 `json:"temperature"`
	FiveHourLow  *float64 `json:"fiveHourLow"`
	FiveHourHigh *float64 `json:"fiveHourHigh"`
	Description  *string  `json:"description"`
	ErrorMessage *string  `json:"errorMessage"`
}

// Report gathers temperature, low/high and conditions. The first error aborts
// the whole report and is returned as ErrorMessage.
func (s *Service) Report(ctx context.Context, latitude, longitude float64) Report {
	temp, err := s.CurrentTemperature(ctx, latitude, longitude)
	if err != nil {
		return s.failedReport(err, latitude, longitude)
	}
	hl, err := s.HighLow(ctx, latitude, longitude)
	if err != nil {
		return s.failedReport(err, latitude, longitude)
	}
	desc, err := s.CurrentConditions(ctx, latitude, longitude)
	if err != nil {
		return s.failedReport(err, latitude, longitude)
	}

	description := string(desc)
	return Report{
		Temperature:  &temp,
		FiveHourLow:  &hl.Low,
		FiveHourHigh: &hl.High,
		Description:  &description,
	}
}

func (s *Service) failedReport(err error, latitude, longitude float64) Report {
	s.log.WithError(err).WithFields(logrus.Fields{
		"latitude":  latitude,
		"longitude": longitude,
	}).Error("weather report failed")
	msg := err.Error()
	return Report{ErrorMessage: &msg}
}
