package sensor_simulator

import (
	"math"
	"math/rand"
	"sync"
)

// DataGenerator produces a bounded random walk per channel, so simulated
// series look like a real tank instead of white noise.
type DataGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand

	humidity float64 // calibrated soil humidity [%]
	rawADC   float64 // uncalibrated ADC count
	level    float64 // ultrasonic distance [cm]
	quality  float64 // TDS [ppm]
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng:      rand.New(rand.NewSource(seed)),
		humidity: 55,
		rawADC:   500,
		level:    18,
		quality:  400,
	}
}

func (g *DataGenerator) step(v, drift, lo, hi float64) float64 {
	v += (g.rng.Float64()*2 - 1) * drift
	return math.Max(lo, math.Min(hi, v))
}

// NextHumidity returns the calibrated percentage and the raw ADC sibling.
func (g *DataGenerator) NextHumidity() (pct, raw float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.humidity = g.step(g.humidity, 2.0, 0, 100)
	g.rawADC = g.step(g.rawADC, 15, 0, 1023)
	return g.humidity, g.rawADC
}

func (g *DataGenerator) NextLevel() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.level = g.step(g.level, 0.8, 2, 40)
	return g.level
}

func (g *DataGenerator) NextQuality() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quality = g.step(g.quality, 10, 50, 1200)
	return g.quality
}

// LegacyRoll returns true roughly once every n calls; the simulator uses it
// to emit the older firmware key names and exercise the fallback chains.
func (g *DataGenerator) LegacyRoll(n int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n) == 0
}
