package sensor_simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icc-pecera/tank-telemetry/internal/services/telemetry"
	"github.com/icc-pecera/tank-telemetry/pkg/mqtt"
)

type capturePublisher struct {
	payloads [][]byte
}

func (p *capturePublisher) PublishMessage(payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}
func (p *capturePublisher) Close() {}

func TestSimulatorPayloadsNormalize(t *testing.T) {
	pubs := map[string]*capturePublisher{}
	factory := func(topic string) mqtt.IPublisher {
		p := &capturePublisher{}
		pubs[topic] = p
		return p
	}

	gen := NewDataGenerator(1)
	s := NewSimulator(factory,
		[3]string{telemetry.TopicHumidity, telemetry.TopicWaterLevel, telemetry.TopicWaterQuality},
		gen, time.Second)

	// several ticks so the legacy key variants show up too
	for i := 0; i < 20; i++ {
		s.tick()
	}

	for topic, p := range pubs {
		require.Len(t, p.payloads, 20, "topic %s", topic)
		for _, payload := range p.payloads {
			readings, err := telemetry.Normalize(topic, payload, time.Now())
			require.NoError(t, err, "topic %s payload %s", topic, payload)
			assert.NotEmpty(t, readings)
		}
	}
}

func TestGeneratorStaysInBounds(t *testing.T) {
	gen := NewDataGenerator(7)
	for i := 0; i < 1000; i++ {
		pct, raw := gen.NextHumidity()
		assert.GreaterOrEqual(t, pct, 0.0)
		assert.LessOrEqual(t, pct, 100.0)
		assert.GreaterOrEqual(t, raw, 0.0)
		assert.LessOrEqual(t, raw, 1023.0)

		lvl := gen.NextLevel()
		assert.GreaterOrEqual(t, lvl, 2.0)
		assert.LessOrEqual(t, lvl, 40.0)

		q := gen.NextQuality()
		assert.GreaterOrEqual(t, q, 50.0)
		assert.LessOrEqual(t, q, 1200.0)
	}
}
