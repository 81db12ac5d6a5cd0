package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/icc-pecera/tank-telemetry/internal/model"
	"github.com/icc-pecera/tank-telemetry/internal/services/report"
)

// ReadingSource is the query half of the reading store the API needs.
type ReadingSource interface {
	Recent(ctx context.Context, class model.SensorClass, limit int) ([]model.StoredReading, error)
	Since(ctx context.Context, class model.SensorClass, since time.Time) ([]model.StoredReading, error)
}

const (
	defaultReadingsLimit = 50
	queryTimeout         = 5 * time.Second
)

// NewRouter wires the read-side surface. Everything here is a read-only
// consumer of the cache and the store and never blocks ingestion; store read
// failures degrade to empty results, they never crash the process.
func NewRouter(cache *LatestCache, source ReadingSource, engine *report.Engine) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/data/latest", latestHandler(cache)).Methods(http.MethodGet)
	r.HandleFunc("/data/readings", readingsHandler(source)).Methods(http.MethodGet)
	r.HandleFunc("/reports/summary", summaryHandler(engine)).Methods(http.MethodGet)
	return r
}

type latestResponse struct {
	HasData  bool                              `json:"has_data"`
	Readings map[model.SensorClass]LatestEntry `json:"readings"`
}

// GET /data/latest
func latestHandler(cache *LatestCache) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := cache.Snapshot()
		writeJSON(w, latestResponse{
			HasData:  len(snap) > 0,
			Readings: snap,
		})
	}
}

// GET /data/readings?class=C&limit=N    (newest-first, default 50)
// GET /data/readings?class=C&days=D     (newest-first, default 7)
func readingsHandler(source ReadingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		class := model.SensorClass(q.Get("class"))
		if !class.Valid() {
			http.Error(w, "unknown sensor class", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		var rows []model.StoredReading
		var err error
		if d := q.Get("days"); d != "" {
			days := atoiBounded(d, report.DefaultWindowDays, 1, 365)
			rows, err = source.Since(ctx, class, time.Now().AddDate(0, 0, -days))
			reverse(rows) // store returns the window ascending
		} else {
			limit := atoiBounded(q.Get("limit"), defaultReadingsLimit, 1, 500)
			rows, err = source.Recent(ctx, class, limit)
		}
		if err != nil {
			// degrade to "no data available" on the read path
			log.Printf("api: readings query failed for %s: %v", class, err)
			w.Header().Set("X-Error", "store-read-error")
			rows = nil
		}
		if rows == nil {
			rows = []model.StoredReading{}
		}
		writeJSON(w, rows)
	}
}

// GET /reports/summary?days=D
func summaryHandler(engine *report.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := atoiBounded(r.URL.Query().Get("days"), report.DefaultWindowDays, 1, 365)

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		writeJSON(w, engine.Summarize(ctx, days))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func atoiBounded(s string, def, min, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func reverse(rows []model.StoredReading) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
