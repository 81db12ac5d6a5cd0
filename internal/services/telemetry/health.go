package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/icc-pecera/tank-telemetry/internal/services/persistence"
)

type healthHandler struct {
	mqtt   mqtt.Client
	influx influxdb2.Client
	writes *persistence.WriteHealth
}

func NewHealthHandler(m mqtt.Client, i influxdb2.Client, w *persistence.WriteHealth) http.Handler {
	return &healthHandler{mqtt: m, influx: i, writes: w}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status          string  `json:"status"`
		MQTTConnected   bool    `json:"mqtt_connected"`
		InfluxOK        bool    `json:"influx_ok"`
		LastWriteErrorS float64 `json:"last_write_error_age_sec"`
	}
	st := status{
		MQTTConnected:   h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		InfluxOK:        h.influx != nil, // client existence, lightweight check
		LastWriteErrorS: h.writes.LastErrorAge().Seconds(),
	}

	// ok when deps are up and writes have been clean recently
	if st.MQTTConnected && st.InfluxOK && h.writes.LastErrorAge() > 30*time.Second {
		st.Status = "ok"
	} else if st.MQTTConnected || st.InfluxOK {
		st.Status = "degraded"
	} else {
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// readyHandler answers /readyz: 200 only when every dependency is ok.
type readyHandler struct {
	mqtt     mqtt.Client
	influx   influxdb2.Client
	writes   *persistence.WriteHealth
	minError time.Duration
}

func NewReadyHandler(m mqtt.Client, i influxdb2.Client, w *persistence.WriteHealth, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{mqtt: m, influx: i, writes: w, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.mqtt != nil && h.mqtt.IsConnectionOpen() && h.influx != nil &&
		h.writes.LastErrorAge() > h.minError
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Header().Set("Content-Type", "application/json")
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
