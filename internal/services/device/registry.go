package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/icc-pecera/tank-telemetry/internal/model/entities"
)

// ErrNotFound is returned by Lookup when no device carries the given name.
var ErrNotFound = errors.New("device: not found")

// Registry is the pipeline's view of the device registry, an external
// collaborator. Readings are only attributed to devices that exist here.
type Registry interface {
	Lookup(ctx context.Context, name string) (entities.Device, error)
	Create(ctx context.Context, dev entities.Device) (entities.Device, error)
}

// MemRegistry is an in-process registry used when no external registry is
// configured, and by tests.
type MemRegistry struct {
	mu     sync.Mutex
	byName map[string]entities.Device
}

func NewMemRegistry() *MemRegistry {
	return &MemRegistry{byName: make(map[string]entities.Device)}
}

func (r *MemRegistry) Lookup(_ context.Context, name string) (entities.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byName[name]; ok {
		return d, nil
	}
	return entities.Device{}, ErrNotFound
}

func (r *MemRegistry) Create(_ context.Context, dev entities.Device) (entities.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byName[dev.Name]; ok {
		return d, nil
	}
	if dev.ID == "" {
		dev.ID = uuid.NewString()
	}
	if dev.CreatedAt.IsZero() {
		dev.CreatedAt = time.Now().UTC()
	}
	r.byName[dev.Name] = dev
	return dev, nil
}
