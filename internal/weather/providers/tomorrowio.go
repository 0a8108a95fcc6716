package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	TomorrowIOBaseURL = "https://api.tomorrow.io/v4/timelines"

	tomorrowIOUnits     = "imperial"
	tomorrowIOTimestep  = "1h"
	tomorrowIOStartTime = "now"
	tomorrowIOEndTime   = "nowPlus5d"
)

// tomorrowIOFields is the fixed field set requested for every timeline.
var tomorrowIOFields = []string{
	"cloudCover",
	"precipitationIntensity",
	"precipitationType",
	"temperatureApparent",
	"thunderstormProbability",
	"uvIndex",
	"visibility",
	"weatherCode",
	"windDirection",
	"windGust",
	"windSpeed",
}

var (
	errMissingAPIKey = errors.New("tomorrow.io api key is not configured")
	errEmptyBody     = errors.New("empty response body")
)

// TomorrowIOConfig configures the Tomorrow.io timeline client.
type TomorrowIOConfig struct {
	APIKey  string
	BaseURL string
	// MaxAttempts caps total requests per fetch. Defaults to 5.
	MaxAttempts int
	// BaseDelay scales the 2^n backoff. Defaults to one second.
	BaseDelay time.Duration
	// RatePerSecond paces requests client side. Zero disables pacing.
	RatePerSecond float64
	Logger        logrus.FieldLogger
}

type timelineRequest struct {
	Location  string   `json:"location"`
	Fields    []string `json:"fields"`
	Units     string   `json:"units"`
	Timesteps []string `json:"timesteps"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

// TomorrowIOProvider implements the weather.Provider interface for the Tomorrow.io timeline API.
type TomorrowIOProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

func NewTomorrowIOProvider(client *http.Client, cfg TomorrowIOConfig) *TomorrowIOProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "tomorrow.io",
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: breakerSuccessful,
	})

	if cfg.BaseURL == "" {
		cfg.BaseURL = TomorrowIOBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "tomorrowio")

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &TomorrowIOProvider{
		name:    "tomorrow",
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxAttempts: cfg.MaxAttempts,
				BaseDelay:   cfg.BaseDelay,
			},
			Limiter: limiter,
			Log:     log,
		},
		circuit: cb,
		log:     log,
	}
}

func (p *TomorrowIOProvider) Name() string {
	return p.name
}

// FetchTimeline requests the hourly timeline from now to five days ahead.
func (p *TomorrowIOProvider) FetchTimeline(ctx context.Context, latitude, longitude float64) (*weather.TimelineResponse, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, errMissingAPIKey)
	}

	location := strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
	body, err := json.Marshal(timelineRequest{
		Location:  location,
		Fields:    tomorrowIOFields,
		Units:     tomorrowIOUnits,
		Timesteps: []string{tomorrowIOTimestep},
		StartTime: tomorrowIOStartTime,
		EndTime:   tomorrowIOEndTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode timeline request: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	p.log.WithFields(logrus.Fields{"latitude": latitude, "longitude": longitude}).Info("querying timeline")

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, err)
	}

	var timeline weather.TimelineResponse
	if err := json.Unmarshal(raw, &timeline); err != nil {
		return nil, fmt.Errorf("%w: failed to decode timeline: %w", weather.ErrUpstreamUnavailable, err)
	}

	return &timeline, nil
}

// readBody returns the response body, gunzipped when the server says so.
// A blank body is an error.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errEmptyBody
	}
	return raw, nil
}
