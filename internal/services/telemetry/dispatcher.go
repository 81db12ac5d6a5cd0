package telemetry

import (
	"context"
	"log"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/icc-pecera/tank-telemetry/internal/model"
	"github.com/icc-pecera/tank-telemetry/pkg/mqtt"
)

// Appender is the write half of the reading store the dispatcher needs.
type Appender interface {
	Append(ctx context.Context, r model.Reading) error
}

const appendTimeout = 5 * time.Second

// Dispatcher owns the only write path into the cache and the store. For every
// inbound message: normalize, then cache update, then durable append, in that
// order — the live view reflects a reading before persistence confirms it.
//
// Every ingestion-path error is absorbed locally: rejects and failed appends
// are logged, counted and dropped, and the loop moves on to the next message.
// There is no retry, no buffering and no backpressure beyond blocking on the
// append itself.
type Dispatcher struct {
	consumer mqtt.IConsumer
	cache    *LatestCache
	store    Appender
	metrics  *Metrics

	ctx context.Context
}

func NewDispatcher(consumer mqtt.IConsumer, cache *LatestCache, store Appender, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		consumer: consumer,
		cache:    cache,
		store:    store,
		metrics:  metrics,
	}
}

// Start subscribes to all known topics and blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx = ctx
	d.consumer.SetHandler(d.handleMessage)
	d.consumer.ConsumeMessage(ctx)
}

func (d *Dispatcher) handleMessage(topic string, msg pahomqtt.Message) error {
	readings, err := Normalize(topic, msg.Payload(), time.Now())
	if err != nil {
		log.Printf("telemetry: dropping message on %s: %v", topic, err)
		d.metrics.MarkRejected(RejectReason(err))
		return nil // never bubble a bad message into the transport layer
	}

	for _, r := range readings {
		d.cache.Update(r.Class, r.Value, r.CapturedAt)
		d.metrics.MarkIngested(r.Class)

		appendCtx, cancel := context.WithTimeout(d.baseCtx(), appendTimeout)
		err := d.store.Append(appendCtx, r)
		cancel()
		if err != nil {
			// reading is lost; the live view keeps it, ingestion continues
			log.Printf("telemetry: append failed for %s: %v", r.Class, err)
			d.metrics.MarkStoreError()
		}
	}
	return nil
}

func (d *Dispatcher) baseCtx() context.Context {
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}
