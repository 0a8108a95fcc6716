package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/geo"
)

type fakeWarmer struct {
	mu     sync.Mutex
	warmed []geo.Coordinate
	fail   map[geo.Coordinate]bool
	done   chan struct{}
}

func (w *fakeWarmer) Warm(ctx context.Context, latitude, longitude float64) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	c := geo.Coordinate{Latitude: latitude, Longitude: longitude}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.warmed = append(w.warmed, c)
	if w.done != nil {
		select {
		case w.done <- struct{}{}:
		default:
		}
	}
	if w.fail[c] {
		return errors.New("upstream unavailable")
	}
	return nil
}

func TestRunOnce(t *testing.T) {
	locations := []geo.Coordinate{
		{Latitude: 37.7749, Longitude: -122.4194},
		{Latitude: 51.5072, Longitude: -0.1276},
		{Latitude: -33.8688, Longitude: 151.2093},
	}
	w := &fakeWarmer{fail: map[geo.Coordinate]bool{locations[1]: true}}
	logger, _ := test.NewNullLogger()

	s := New(locations, 15*time.Minute, w, logger)
	failures := s.RunOnce()

	assert.Equal(t, 1, failures)
	assert.ElementsMatch(t, locations, w.warmed)
}

func TestStartWithoutLocations(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New(nil, time.Minute, &fakeWarmer{}, logger)

	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartRunsImmediately(t *testing.T) {
	w := &fakeWarmer{done: make(chan struct{}, 1)}
	logger, _ := test.NewNullLogger()
	s := New([]geo.Coordinate{{Latitude: 1, Longitude: 2}}, time.Hour, w, logger)

	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("warm job did not run")
	}
}
