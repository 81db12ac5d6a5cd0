package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/icc-pecera/tank-telemetry/internal/model"
)

// Metrics instruments the ingestion path. Exposed on /metrics.
type Metrics struct {
	Ingested    *prometheus.CounterVec
	Rejected    *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_readings_ingested_total",
			Help: "Readings accepted by the normalizer, per sensor class.",
		}, []string{"class"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_messages_rejected_total",
			Help: "Inbound messages dropped at normalization, per reason.",
		}, []string{"reason"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_store_append_errors_total",
			Help: "Accepted readings lost because the durable append failed.",
		}),
	}
}

func (m *Metrics) MarkIngested(class model.SensorClass) {
	if m == nil {
		return
	}
	m.Ingested.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) MarkRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) MarkStoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}
