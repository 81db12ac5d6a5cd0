package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

func TestLatestCacheLastWriteWins(t *testing.T) {
	c := NewLatestCache()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		c.Update(model.ClassHumidity, float64(i), base.Add(time.Duration(i)*time.Minute))
	}

	snap := c.Snapshot()
	require.Contains(t, snap, model.ClassHumidity)
	assert.InDelta(t, 9, snap[model.ClassHumidity].Value, 1e-9)
	assert.Equal(t, base.Add(9*time.Minute), snap[model.ClassHumidity].CapturedAt)
}

func TestLatestCacheOverwriteIgnoresTimestampOrder(t *testing.T) {
	c := NewLatestCache()
	newer := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	c.Update(model.ClassWaterLevel, 20, newer)
	c.Update(model.ClassWaterLevel, 15, older) // delivered later, wins anyway

	snap := c.Snapshot()
	assert.InDelta(t, 15, snap[model.ClassWaterLevel].Value, 1e-9)
	assert.Equal(t, older, snap[model.ClassWaterLevel].CapturedAt)
}

func TestLatestCacheHasData(t *testing.T) {
	c := NewLatestCache()
	assert.False(t, c.HasData())
	assert.Empty(t, c.Snapshot())

	c.Update(model.ClassWaterQuality, 420, time.Now())
	assert.True(t, c.HasData())
}

func TestLatestCacheSnapshotIsCopy(t *testing.T) {
	c := NewLatestCache()
	c.Update(model.ClassHumidity, 50, time.Now())

	snap := c.Snapshot()
	snap[model.ClassHumidity] = LatestEntry{Value: -1}

	assert.InDelta(t, 50, c.Snapshot()[model.ClassHumidity].Value, 1e-9)
}

// Concurrent writers against one class plus concurrent readers: run with
// -race; the final state must be one of the written entries, never torn.
func TestLatestCacheConcurrentAccess(t *testing.T) {
	c := NewLatestCache()
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				v := float64(w*1000 + i)
				// value and timestamp are written as one entry; a torn read
				// would pair a value with a mismatched timestamp
				c.Update(model.ClassHumidity, v, at.Add(time.Duration(v)*time.Second))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := c.Snapshot()
				if e, ok := snap[model.ClassHumidity]; ok {
					want := at.Add(time.Duration(e.Value) * time.Second)
					assert.Equal(t, want, e.CapturedAt)
				}
			}
		}()
	}
	wg.Wait()

	e := c.Snapshot()[model.ClassHumidity]
	assert.Equal(t, at.Add(time.Duration(e.Value)*time.Second), e.CapturedAt)
}
