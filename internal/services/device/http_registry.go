package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/icc-pecera/tank-telemetry/internal/model/entities"
)

// HTTPRegistry talks to the external device registry over REST. Calls go
// through a circuit breaker so a dead registry fails fast instead of holding
// up the first append of the process.
type HTTPRegistry struct {
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPRegistry(base string, timeout time.Duration) *HTTPRegistry {
	return &HTTPRegistry{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "device-registry",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			// a missing device is a valid answer, not a registry outage
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotFound)
			},
		}),
	}
}

func (r *HTTPRegistry) Lookup(ctx context.Context, name string) (entities.Device, error) {
	out, err := r.breaker.Execute(func() (any, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
			r.base+"/devices/"+url.PathEscape(name), nil)
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("registry lookup: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("registry lookup: status %d", resp.StatusCode)
		}
		var d entities.Device
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			return nil, fmt.Errorf("registry lookup: decode: %w", err)
		}
		return d, nil
	})
	if err != nil {
		return entities.Device{}, err
	}
	return out.(entities.Device), nil
}

func (r *HTTPRegistry) Create(ctx context.Context, dev entities.Device) (entities.Device, error) {
	out, err := r.breaker.Execute(func() (any, error) {
		body, err := json.Marshal(dev)
		if err != nil {
			return nil, err
		}
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
			r.base+"/devices", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("registry create: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("registry create: status %d", resp.StatusCode)
		}
		var created entities.Device
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return nil, fmt.Errorf("registry create: decode: %w", err)
		}
		return created, nil
	})
	if err != nil {
		return entities.Device{}, err
	}
	return out.(entities.Device), nil
}
