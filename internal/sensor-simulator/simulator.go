package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/icc-pecera/tank-telemetry/pkg/mqtt"
)

// PublisherFactory builds a publisher bound to one topic.
type PublisherFactory func(topic string) mqtt.IPublisher

// Simulator publishes synthetic payloads across the three tank topics at a
// fixed interval. Every few messages it swaps in a legacy key name
// ("humedad", "distance_cm", "valor") so the ingest fallback chains get
// exercised end to end, the way mixed firmware in the field behaves.
type Simulator struct {
	humidity mqtt.IPublisher
	level    mqtt.IPublisher
	quality  mqtt.IPublisher
	gen      *DataGenerator
	interval time.Duration
}

func NewSimulator(factory PublisherFactory, topics [3]string, gen *DataGenerator, interval time.Duration) *Simulator {
	return &Simulator{
		humidity: factory(topics[0]),
		level:    factory(topics[1]),
		quality:  factory(topics[2]),
		gen:      gen,
		interval: interval,
	}
}

func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Simulator) tick() {
	pct, raw := s.gen.NextHumidity()
	hum := map[string]any{"humedad_suelo": round1(pct), "raw": int(raw)}
	if s.gen.LegacyRoll(4) {
		hum = map[string]any{"humedad": round1(pct)}
	}
	s.publish(s.humidity, hum)

	lvl := map[string]any{"nivel": round1(s.gen.NextLevel())}
	if s.gen.LegacyRoll(4) {
		lvl = map[string]any{"distance_cm": round1(s.gen.NextLevel())}
	}
	s.publish(s.level, lvl)

	qual := map[string]any{"calidad": round1(s.gen.NextQuality())}
	if s.gen.LegacyRoll(4) {
		// the oldest quality firmware also quotes the number
		qual = map[string]any{"valor": fmt.Sprintf("%.1f", s.gen.NextQuality())}
	}
	s.publish(s.quality, qual)
}

func (s *Simulator) publish(p mqtt.IPublisher, payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("simulator: marshal err %v", err)
		return
	}
	if err := p.PublishMessage(b); err != nil {
		log.Printf("simulator: publish err %v", err)
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
