package report

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// Source is the read half of the reading store the engine needs. It is
// independent of live ingestion and never blocks it.
type Source interface {
	Since(ctx context.Context, class model.SensorClass, since time.Time) ([]model.StoredReading, error)
}

// Range is a per-class inclusive optimal band for the window mean.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// OptimalRanges drives status classification. Soil humidity is a calibrated
// percentage, raw humidity an ADC count, water level an ultrasonic distance
// in cm, water quality a TDS reading in ppm.
var OptimalRanges = map[model.SensorClass]Range{
	model.ClassHumidity:     {Low: 40, High: 70},
	model.ClassRawHumidity:  {Low: 300, High: 700},
	model.ClassWaterLevel:   {Low: 10, High: 25},
	model.ClassWaterQuality: {Low: 200, High: 600},
}

// Engine computes windowed statistics and threshold status from the store.
type Engine struct {
	source Source
}

func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// Compute aggregates the readings for class over the trailing window. An
// empty window — including a failed store read — yields status no_data with
// zeroed numerics rather than an error, so callers render a report either way.
func (e *Engine) Compute(ctx context.Context, class model.SensorClass, window time.Duration) model.StatReport {
	rows, err := e.source.Since(ctx, class, time.Now().Add(-window))
	if err != nil {
		log.Printf("report: store read failed for %s: %v", class, err)
		return noData()
	}
	if len(rows) == 0 {
		return noData()
	}

	min, max := rows[0].Value, rows[0].Value
	sum := 0.0
	for _, r := range rows {
		sum += r.Value
		if r.Value < min {
			min = r.Value
		}
		if r.Value > max {
			max = r.Value
		}
	}
	mean := sum / float64(len(rows))

	// sample standard deviation, 0 by definition for a single reading
	stddev := 0.0
	if len(rows) > 1 {
		var sq float64
		for _, r := range rows {
			d := r.Value - mean
			sq += d * d
		}
		stddev = math.Sqrt(sq / float64(len(rows)-1))
	}

	return model.StatReport{
		Count:  len(rows),
		Mean:   mean,
		Min:    min,
		Max:    max,
		StdDev: stddev,
		Status: classify(class, mean),
	}
}

func noData() model.StatReport {
	return model.StatReport{Status: model.StatusNoData}
}

// classify compares the window mean against the class's optimal range;
// boundaries are inclusive.
func classify(class model.SensorClass, mean float64) model.Status {
	r, ok := OptimalRanges[class]
	if !ok {
		return model.StatusOptimal
	}
	switch {
	case mean < r.Low:
		return model.StatusLow
	case mean > r.High:
		return model.StatusHigh
	default:
		return model.StatusOptimal
	}
}
