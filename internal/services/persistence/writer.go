package persistence

import (
	"sync"
	"time"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// WriteHealth tracks the last append error and per-class write counts for
// /healthz and /readyz.
type WriteHealth struct {
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[model.SensorClass]int64
}

func NewWriteHealth() *WriteHealth {
	return &WriteHealth{
		lastErr: time.Now().Add(-24 * time.Hour), // "long ago" by default
		counts:  make(map[model.SensorClass]int64),
	}
}

func (w *WriteHealth) MarkError() {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.lastErr = time.Now()
	w.mu.Unlock()
}

func (w *WriteHealth) MarkWrite(class model.SensorClass) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.counts[class]++
	w.mu.Unlock()
}

// LastErrorAge returns how long the store has gone without a write error.
func (w *WriteHealth) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

func (w *WriteHealth) Count(class model.SensorClass) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	c := w.counts[class]
	w.mu.RUnlock()
	return c
}
