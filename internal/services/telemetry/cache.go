package telemetry

import (
	"sync"
	"time"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// LatestEntry is the most recent reading seen for one class.
type LatestEntry struct {
	Value      float64   `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
}

// LatestCache holds the most recent reading per sensor class for live
// display. It is instantiated once at process start and shared by reference
// between the dispatcher (sole writer) and the read-side handlers; a single
// lock over the whole table is enough at telemetry rates.
//
// Overwrite is unconditional: last received wins, not last timestamped.
// Messages are assumed to arrive in transport order per topic.
type LatestCache struct {
	mu      sync.RWMutex
	entries map[model.SensorClass]LatestEntry
}

func NewLatestCache() *LatestCache {
	return &LatestCache{entries: make(map[model.SensorClass]LatestEntry, len(model.AllClasses))}
}

// Update replaces the entry for class regardless of captured_at ordering.
func (c *LatestCache) Update(class model.SensorClass, value float64, capturedAt time.Time) {
	c.mu.Lock()
	c.entries[class] = LatestEntry{Value: value, CapturedAt: capturedAt}
	c.mu.Unlock()
}

// Snapshot returns a consistent copy of all entries: no caller ever observes
// a half-written update. Classes with no reading yet are absent from the map.
func (c *LatestCache) Snapshot() map[model.SensorClass]LatestEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.SensorClass]LatestEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// HasData reports whether at least one class has received a reading.
func (c *LatestCache) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries) > 0
}
