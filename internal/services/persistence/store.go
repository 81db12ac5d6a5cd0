package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/icc-pecera/tank-telemetry/internal/model"
	"github.com/icc-pecera/tank-telemetry/internal/model/entities"
)

// InfluxConfig locates the bucket readings are appended to.
type InfluxConfig struct {
	Org    string
	Bucket string
	// MeasurementPrefix partitions the series per class: <prefix>_<class>,
	// e.g. tank_humidity.
	MeasurementPrefix string
}

// DeviceResolver supplies the default device for readings that designate
// none. Implemented by device.Resolver.
type DeviceResolver interface {
	Resolve(ctx context.Context) (entities.Device, error)
}

// InfluxStore is the durable, append-only reading store. One measurement per
// sensor class, one point per accepted reading; the pipeline never updates or
// deletes points. Each append is a single blocking write with no batching, so
// a reading is either committed or reported lost, never buffered.
type InfluxStore struct {
	write   api.WriteAPIBlocking
	query   api.QueryAPI
	cfg     InfluxConfig
	devices DeviceResolver
	health  *WriteHealth
}

func NewInfluxStore(client influxdb2.Client, cfg InfluxConfig, devices DeviceResolver) (*InfluxStore, error) {
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if cfg.MeasurementPrefix == "" {
		cfg.MeasurementPrefix = "tank"
	}
	return &InfluxStore{
		write:   client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		query:   client.QueryAPI(cfg.Org),
		cfg:     cfg,
		devices: devices,
		health:  NewWriteHealth(),
	}, nil
}

// Health exposes write-error tracking for the /healthz and /readyz probes.
func (s *InfluxStore) Health() *WriteHealth { return s.health }

// Append durably commits one reading. Device attribution happens here: a
// reading without a device resolves to the memoized default device before the
// write. Failures are returned to the dispatcher, which logs and drops.
func (s *InfluxStore) Append(ctx context.Context, r model.Reading) error {
	deviceID := r.DeviceID
	if deviceID == "" {
		dev, err := s.devices.Resolve(ctx)
		if err != nil {
			s.health.MarkError()
			return fmt.Errorf("resolve default device: %w", err)
		}
		deviceID = dev.ID
	}

	t := r.CapturedAt
	if t.IsZero() {
		t = time.Now()
	}

	point := influxdb2.NewPoint(
		s.measurement(r.Class),
		map[string]string{"device_id": deviceID},
		map[string]any{"value": r.Value},
		t,
	)
	if err := s.write.WritePoint(ctx, point); err != nil {
		s.health.MarkError()
		return fmt.Errorf("write point: %w", err)
	}
	s.health.MarkWrite(r.Class)
	return nil
}

// Recent returns at most limit readings for class, newest first.
func (s *InfluxStore) Recent(ctx context.Context, class model.SensorClass, limit int) ([]model.StoredReading, error) {
	if limit < 1 {
		limit = 1
	}
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q and r._field == "value")
  |> keep(columns: ["_time","_value"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, s.cfg.Bucket, s.measurement(class), limit)
	return s.run(ctx, flux)
}

// Since returns all readings for class captured at or after since, ascending,
// the full-range export order used for report series.
func (s *InfluxStore) Since(ctx context.Context, class model.SensorClass, since time.Time) ([]model.StoredReading, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %q and r._field == "value")
  |> keep(columns: ["_time","_value"])
  |> sort(columns: ["_time"], desc: false)
`, s.cfg.Bucket, since.UTC().Format(time.RFC3339), s.measurement(class))
	return s.run(ctx, flux)
}

func (s *InfluxStore) run(ctx context.Context, flux string) ([]model.StoredReading, error) {
	res, err := s.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer func() { _ = res.Close() }()

	var out []model.StoredReading
	for res.Next() {
		rec := res.Record()
		v, ok := coerceFloat(rec.Value())
		if !ok {
			continue
		}
		out = append(out, model.StoredReading{Value: v, CapturedAt: rec.Time().UTC()})
	}
	if res.Err() != nil {
		return out, fmt.Errorf("influx iterate: %w", res.Err())
	}
	return out, nil
}

func (s *InfluxStore) measurement(class model.SensorClass) string {
	return sanitizeMeasurement(s.cfg.MeasurementPrefix + "_" + string(class))
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
