package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMeasurement(t *testing.T) {
	cases := map[string]string{
		"tank_humidity":     "tank_humidity",
		"tank_water_level":  "tank_water_level",
		"tank humidity":     "tank_humidity",
		"tank/quality":      "tank_quality",
		"tank-1:water":      "tank-1:water",
		"pecera.ultrasonic": "pecera_ultrasonic",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeMeasurement(in), "input %q", in)
	}
}

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(18.5), 18.5, true},
		{int64(42), 42, true},
		{int(7), 7, true},
		{" 612.5 ", 612.5, true},
		{"not a number", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, ok := coerceFloat(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9)
		}
	}
}

func TestWriteHealthTracksErrors(t *testing.T) {
	w := NewWriteHealth()
	assert.Greater(t, w.LastErrorAge().Hours(), 1.0) // starts "long ago"

	w.MarkError()
	assert.Less(t, w.LastErrorAge().Seconds(), 1.0)
}

func TestWriteHealthCounts(t *testing.T) {
	w := NewWriteHealth()
	assert.EqualValues(t, 0, w.Count("humidity"))
	w.MarkWrite("humidity")
	w.MarkWrite("humidity")
	w.MarkWrite("water_level")
	assert.EqualValues(t, 2, w.Count("humidity"))
	assert.EqualValues(t, 1, w.Count("water_level"))
}
