package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// fakeMessage satisfies the paho Message interface for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

var _ pahomqtt.Message = (*fakeMessage)(nil)

// flakyStore records appends and fails while down.
type flakyStore struct {
	mu       sync.Mutex
	down     bool
	appended []model.Reading
}

func (s *flakyStore) Append(_ context.Context, r model.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errors.New("store unavailable")
	}
	s.appended = append(s.appended, r)
	return nil
}

func (s *flakyStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *flakyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func newTestDispatcher(store Appender) (*Dispatcher, *LatestCache) {
	cache := NewLatestCache()
	d := NewDispatcher(nil, cache, store, nil)
	return d, cache
}

func deliver(t *testing.T, d *Dispatcher, topic, payload string) {
	t.Helper()
	err := d.handleMessage(topic, &fakeMessage{topic: topic, payload: []byte(payload)})
	require.NoError(t, err)
}

func TestDispatcherCacheThenStore(t *testing.T) {
	store := &flakyStore{}
	d, cache := newTestDispatcher(store)

	deliver(t, d, TopicWaterLevel, `{"nivel": 17.2}`)

	snap := cache.Snapshot()
	require.Contains(t, snap, model.ClassWaterLevel)
	assert.InDelta(t, 17.2, snap[model.ClassWaterLevel].Value, 1e-9)

	require.Equal(t, 1, store.count())
	assert.Equal(t, model.ClassWaterLevel, store.appended[0].Class)
}

func TestDispatcherDropsRejectsAndContinues(t *testing.T) {
	store := &flakyStore{}
	d, cache := newTestDispatcher(store)

	deliver(t, d, TopicHumidity, `not json at all`)
	deliver(t, d, "pecera/unknown", `{"value": 1}`)
	deliver(t, d, TopicHumidity, `{"temp": 3}`)

	assert.False(t, cache.HasData())
	assert.Equal(t, 0, store.count())

	// the loop is still alive for the next good message
	deliver(t, d, TopicHumidity, `{"humedad_suelo": 52}`)
	assert.True(t, cache.HasData())
	assert.Equal(t, 1, store.count())
}

func TestDispatcherHumiditySplitsRawReading(t *testing.T) {
	store := &flakyStore{}
	d, cache := newTestDispatcher(store)

	deliver(t, d, TopicHumidity, `{"humedad_suelo": 47.5, "raw": 498}`)

	snap := cache.Snapshot()
	assert.InDelta(t, 47.5, snap[model.ClassHumidity].Value, 1e-9)
	assert.InDelta(t, 498, snap[model.ClassRawHumidity].Value, 1e-9)
	assert.Equal(t, 2, store.count())
}

// Store outage during 5 messages: the cache reflects every value, the store
// none of them, and the dispatcher handles a 6th message after recovery.
func TestDispatcherSurvivesStoreOutage(t *testing.T) {
	store := &flakyStore{down: true}
	d, cache := newTestDispatcher(store)

	for i := 1; i <= 5; i++ {
		deliver(t, d, TopicWaterQuality, fmt.Sprintf(`{"calidad": %d}`, 400+i))
	}

	snap := cache.Snapshot()
	require.Contains(t, snap, model.ClassWaterQuality)
	assert.InDelta(t, 405, snap[model.ClassWaterQuality].Value, 1e-9)
	assert.Equal(t, 0, store.count())

	store.setDown(false)
	deliver(t, d, TopicWaterQuality, `{"calidad": 410}`)

	assert.InDelta(t, 410, cache.Snapshot()[model.ClassWaterQuality].Value, 1e-9)
	require.Equal(t, 1, store.count())
	assert.InDelta(t, 410, store.appended[0].Value, 1e-9)
}

func TestDispatcherAppendContextHasDeadline(t *testing.T) {
	var gotDeadline bool
	store := appenderFunc(func(ctx context.Context, _ model.Reading) error {
		_, gotDeadline = ctx.Deadline()
		return nil
	})
	d, _ := newTestDispatcher(store)

	deliver(t, d, TopicWaterLevel, `{"nivel": 9}`)
	assert.True(t, gotDeadline)
}

type appenderFunc func(ctx context.Context, r model.Reading) error

func (f appenderFunc) Append(ctx context.Context, r model.Reading) error { return f(ctx, r) }
