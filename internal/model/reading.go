package model

import "time"

// SensorClass is the closed set of reading categories the pipeline accepts.
// Anything outside this set is rejected at normalization, never invented.
type SensorClass string

const (
	ClassHumidity     SensorClass = "humidity"
	ClassRawHumidity  SensorClass = "raw_humidity"
	ClassWaterLevel   SensorClass = "water_level"
	ClassWaterQuality SensorClass = "water_quality"
)

// AllClasses in stable report order.
var AllClasses = []SensorClass{ClassHumidity, ClassRawHumidity, ClassWaterLevel, ClassWaterQuality}

func (c SensorClass) Valid() bool {
	switch c {
	case ClassHumidity, ClassRawHumidity, ClassWaterLevel, ClassWaterQuality:
		return true
	}
	return false
}

// Reading is one normalized sensor observation. It is created by the
// normalizer and never mutated afterwards; the dispatcher hands it once to
// the cache and once to the store.
type Reading struct {
	Class      SensorClass `json:"class"`
	DeviceID   string      `json:"device_id,omitempty"` // empty -> default device at append time
	Value      float64     `json:"value"`
	CapturedAt time.Time   `json:"captured_at"`
}

// StoredReading is the shape queries return: one value with its capture time.
type StoredReading struct {
	Value      float64   `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
}
