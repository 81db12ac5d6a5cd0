package report

import (
	"context"
	"fmt"
	"time"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// ClassReport pairs one class with its window statistics.
type ClassReport struct {
	Class model.SensorClass `json:"class"`
	Stats model.StatReport  `json:"stats"`
}

// Summary is the aggregate table across all classes plus the generated
// recommendations shown to privileged viewers.
type Summary struct {
	WindowDays      int           `json:"window_days"`
	GeneratedAt     time.Time     `json:"generated_at"`
	Reports         []ClassReport `json:"reports"`
	Recommendations []string      `json:"recommendations"`
}

// DefaultWindowDays is the rolling window report generation uses.
const DefaultWindowDays = 7

var classLabels = map[model.SensorClass]string{
	model.ClassHumidity:     "soil humidity",
	model.ClassRawHumidity:  "raw soil humidity",
	model.ClassWaterLevel:   "water level",
	model.ClassWaterQuality: "water quality",
}

// Summarize computes the report for every class over a trailing window of
// whole days.
func (e *Engine) Summarize(ctx context.Context, days int) Summary {
	if days < 1 {
		days = DefaultWindowDays
	}
	window := time.Duration(days) * 24 * time.Hour

	s := Summary{
		WindowDays:  days,
		GeneratedAt: time.Now().UTC(),
	}
	for _, class := range model.AllClasses {
		stats := e.Compute(ctx, class, window)
		s.Reports = append(s.Reports, ClassReport{Class: class, Stats: stats})
		s.Recommendations = append(s.Recommendations, recommendation(class, stats.Status))
	}
	return s
}

func recommendation(class model.SensorClass, status model.Status) string {
	label := classLabels[class]
	if label == "" {
		label = string(class)
	}
	if status == model.StatusNoData {
		return fmt.Sprintf("no recent data for %s", label)
	}
	return fmt.Sprintf("%s is %s", label, status)
}
