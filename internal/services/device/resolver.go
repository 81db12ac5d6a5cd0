package device

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/icc-pecera/tank-telemetry/internal/model/entities"
)

// DefaultDeviceName is the registry name readings fall back to when the
// payload designates no device.
const DefaultDeviceName = "tank-default"

// Resolver resolves (creating if necessary) the default device, memoized for
// the lifetime of the process. Resolution is single-flight: concurrent first
// callers share one lookup/create and observe the same device; a failed
// resolution is not memoized and is retried on the next call.
type Resolver struct {
	registry Registry

	group  singleflight.Group
	mu     sync.RWMutex
	cached *entities.Device
}

func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve is O(1) after the first successful call.
func (r *Resolver) Resolve(ctx context.Context) (entities.Device, error) {
	r.mu.RLock()
	if d := r.cached; d != nil {
		r.mu.RUnlock()
		return *d, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do("default-device", func() (any, error) {
		// another flight may have filled the cache while we queued
		r.mu.RLock()
		if d := r.cached; d != nil {
			r.mu.RUnlock()
			return *d, nil
		}
		r.mu.RUnlock()

		d, err := r.registry.Lookup(ctx, DefaultDeviceName)
		if errors.Is(err, ErrNotFound) {
			d, err = r.registry.Create(ctx, entities.Device{
				Name:      DefaultDeviceName,
				Location:  "tank",
				CreatedAt: time.Now().UTC(),
			})
			if err == nil {
				log.Printf("registry: created default device %s", d.ID)
			}
		}
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = &d
		r.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return entities.Device{}, err
	}
	return v.(entities.Device), nil
}
