package weather

import (
	"sort"
	"time"

	"github.com/i474232898/weather-lookup/internal/geo"
)

// SnapshotCollection indexes snapshots by hour. One entry per distinct hour;
// a later snapshot for the same hour replaces the earlier one.
type SnapshotCollection struct {
	byHour map[int64]Snapshot
}

// NewSnapshotCollection builds a collection from the given snapshots.
func NewSnapshotCollection(snapshots ...Snapshot) *SnapshotCollection {
	c := &SnapshotCollection{byHour: make(map[int64]Snapshot, len(snapshots))}
	for _, s := range snapshots {
		c.byHour[hourKey(s.Timestamp())] = s
	}
	return c
}

func hourKey(t time.Time) int64 {
	return geo.TruncateHour(t).Unix()
}

// Len returns the number of hours held.
func (c *SnapshotCollection) Len() int {
	return len(c.byHour)
}

// TempHigh returns the highest apparent temperature. ok is false for an empty collection.
func (c *SnapshotCollection) TempHigh() (high float64, ok bool) {
	for _, s := range c.byHour {
		if !ok || s.ApparentTemperature() > high {
			high = s.ApparentTemperature()
			ok = true
		}
	}
	return high, ok
}

// TempLow returns the lowest apparent temperature. ok is false for an empty collection.
func (c *SnapshotCollection) TempLow() (low float64, ok bool) {
	for _, s := range c.byHour {
		if !ok || s.ApparentTemperature() < low {
			low = s.ApparentTemperature()
			ok = true
		}
	}
	return low, ok
}

// HighLow returns both bounds; ok is false for an empty collection.
func (c *SnapshotCollection) HighLow() (HighLow, bool) {
	low, ok := c.TempLow()
	if !ok {
		return HighLow{}, false
	}
	high, _ := c.TempHigh()
	return HighLow{Low: low, High: high}, true
}

// EarliestKey returns the first hour held.
func (c *SnapshotCollection) EarliestKey() (time.Time, bool) {
	keys := c.sortedKeys()
	if len(keys) == 0 {
		return time.Time{}, false
	}
	return time.Unix(keys[0], 0).UTC(), true
}

// LatestKey returns the last hour held.
func (c *SnapshotCollection) LatestKey() (time.Time, bool) {
	keys := c.sortedKeys()
	if len(keys) == 0 {
		return time.Time{}, false
	}
	return time.Unix(keys[len(keys)-1], 0).UTC(), true
}

// ByTimestamp looks up the snapshot for the hour containing t.
func (c *SnapshotCollection) ByTimestamp(t time.Time) (Snapshot, bool) {
	s, ok := c.byHour[hourKey(t)]
	return s, ok
}

// Snapshots returns every snapshot ordered by hour ascending.
func (c *SnapshotCollection) Snapshots() []Snapshot {
	keys := c.sortedKeys()
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.byHour[k])
	}
	return out
}

func (c *SnapshotCollection) sortedKeys() []int64 {
	keys := make([]int64, 0, len(c.byHour))
	for k := range c.byHour {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
