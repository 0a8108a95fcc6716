package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
// The wait before retry n (n >= 1) is BaseDelay * 2^n.
type BackoffConfig struct {
	// MaxAttempts caps the total number of requests, the first one included.
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

// Delay returns the wait before retry n.
func (b BackoffConfig) Delay(retry int) time.Duration {
	delay := b.BaseDelay << uint(retry)
	if b.MaxDelay > 0 && delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	return delay
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	// Limiter paces attempts client side. Nil disables pacing.
	Limiter *rate.Limiter
	// Sleep waits between attempts. Nil uses a timer bound to the context.
	Sleep SleepFunc
	Log   logrus.FieldLogger
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// breakerSuccessful keeps client-side rejections out of the breaker's failure
// count. A 429 is handled by the retry loop, so only transport failures and
// 5xx responses can trip the breaker.
func breakerSuccessful(err error) bool {
	return err == nil || errors.Is(err, errRateLimited) || errors.Is(err, errUnexpected)
}

// retryable reports whether err is a transport failure or a rate limit.
func retryable(err error) bool {
	if errors.Is(err, errRateLimited) {
		return true
	}
	return !errors.Is(err, errServerError) && !errors.Is(err, errUnexpected)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doRequestWithResilience executes the HTTP request with pacing, retries,
// exponential backoff, and a circuit breaker. Only transport errors and HTTP 429
// are retried. On success the caller owns the 200 response body. Every failure
// wraps weather.ErrUpstreamUnavailable.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxAttempts < 1 || cfg.Backoff.BaseDelay < 0 {
		return nil, errInvalidConfig
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Backoff.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, err)
		}
		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: rate limiter: %w", weather.ErrUpstreamUnavailable, err)
			}
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusOK {
				return resp, nil
			}

			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d %s", errServerError, resp.StatusCode, snippet)
			default:
				return nil, fmt.Errorf("%w: %d %s", errUnexpected, resp.StatusCode, snippet)
			}
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w: %v", weather.ErrUpstreamUnavailable, errCircuitOpen, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, ctxErr)
		}
		if !retryable(err) {
			return nil, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, err)
		}

		lastErr = err
		if attempt == cfg.Backoff.MaxAttempts {
			break
		}

		delay := cfg.Backoff.Delay(attempt)
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Info("retrying upstream request")

		if err := sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, err)
		}
	}

	log.WithError(lastErr).WithField("attempts", cfg.Backoff.MaxAttempts).Warn("upstream retries exhausted")
	return nil, fmt.Errorf("%w: giving up after %d attempts: %w", weather.ErrUpstreamUnavailable, cfg.Backoff.MaxAttempts, lastErr)
}
