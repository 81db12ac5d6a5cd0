package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// Normalization reject reasons. All of them are non-fatal: the dispatcher
// logs and drops the message, ingestion continues.
var (
	ErrUnknownTopic      = errors.New("normalize: unknown topic")
	ErrMalformed         = errors.New("normalize: payload is not a JSON object")
	ErrNoRecognizedField = errors.New("normalize: no recognized field in payload")
)

// Subscribe-only topics. The names come from the sensor firmware and are not
// ours to change.
const (
	TopicHumidity     = "pecera/humedad"
	TopicWaterLevel   = "pecera/ultrasonico"
	TopicWaterQuality = "pecera/calidad"
)

// Topics lists everything the dispatcher subscribes to.
var Topics = []string{TopicHumidity, TopicWaterLevel, TopicWaterQuality}

var topicClass = map[string]model.SensorClass{
	TopicHumidity:     model.ClassHumidity,
	TopicWaterLevel:   model.ClassWaterLevel,
	TopicWaterQuality: model.ClassWaterQuality,
}

// Per-class fallback chains: candidate keys tried in order, first hit wins.
// Different firmware revisions of the same sensor publish different names.
var fallbackKeys = map[model.SensorClass][]string{
	model.ClassHumidity:     {"humedad_suelo", "value", "humedad"},
	model.ClassWaterLevel:   {"nivel", "distancia", "distance_cm", "distance"},
	model.ClassWaterQuality: {"calidad", "valor", "value"},
}

// rawSiblingKey on the humidity topic carries the uncalibrated ADC count next
// to the calibrated percentage; it yields a second reading.
const rawSiblingKey = "raw"

// Normalize maps one inbound transport message to typed readings. It is pure:
// no I/O, never panics on untrusted input, always returns a tagged rejection
// instead. The humidity topic can yield two readings (calibrated + raw);
// every other topic yields exactly one.
func Normalize(topic string, payload []byte, now time.Time) ([]model.Reading, error) {
	class, ok := topicClass[topic]
	if !ok {
		return nil, ErrUnknownTopic
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrMalformed
	}

	captured := captureTime(obj, now)

	value, found := firstChainValue(obj, fallbackKeys[class])
	if !found && class == model.ClassWaterLevel {
		// Unknown firmware key names: tolerate them by taking the first
		// numeric value in document order.
		value, found = firstNumericValue(payload)
	}
	if !found {
		return nil, ErrNoRecognizedField
	}

	readings := []model.Reading{{Class: class, Value: value, CapturedAt: captured}}

	if class == model.ClassHumidity {
		if raw, ok := toFloat(obj[rawSiblingKey]); ok {
			readings = append(readings, model.Reading{
				Class:      model.ClassRawHumidity,
				Value:      raw,
				CapturedAt: captured,
			})
		}
	}

	return readings, nil
}

func firstChainValue(obj map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, present := obj[k]; present {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// toFloat accepts JSON numbers and numeric strings; the cheaper firmware
// publishes everything quoted.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// firstNumericValue walks the raw payload token by token so that "first"
// means document order, which a decoded map would not preserve. Nested
// objects and arrays are descended in place.
func firstNumericValue(raw []byte) (float64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return 0, false
	}
	switch t := tok.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case json.Delim:
		if t != '{' && t != '[' {
			return 0, false
		}
		for dec.More() {
			if t == '{' {
				if _, err := dec.Token(); err != nil { // key
					return 0, false
				}
			}
			var elem json.RawMessage
			if err := dec.Decode(&elem); err != nil {
				return 0, false
			}
			if f, ok := firstNumericValue(elem); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// captureTime extracts an optional source timestamp ("timestamp", unix
// seconds or RFC3339); absent or unparseable falls back to ingestion time.
func captureTime(obj map[string]any, now time.Time) time.Time {
	v, present := obj["timestamp"]
	if !present {
		return now
	}
	switch ts := v.(type) {
	case json.Number:
		if sec, err := ts.Int64(); err == nil && sec > 0 {
			return time.Unix(sec, 0).UTC()
		}
	case string:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(ts)); err == nil {
			return t
		}
	}
	return now
}

// RejectReason folds a normalization error into its metric/log label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTopic):
		return "unknown_topic"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrNoRecognizedField):
		return "no_recognized_field"
	}
	return "other"
}
