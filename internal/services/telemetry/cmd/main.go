package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icc-pecera/tank-telemetry/internal/services/device"
	"github.com/icc-pecera/tank-telemetry/internal/services/persistence"
	"github.com/icc-pecera/tank-telemetry/internal/services/report"
	"github.com/icc-pecera/tank-telemetry/internal/services/telemetry"
	"github.com/icc-pecera/tank-telemetry/pkg/mqtt"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	_ = godotenv.Load() // optional .env, env vars win

	cfg := struct {
		Broker mqtt.BrokerConfig

		InfluxURL         string
		InfluxToken       string
		InfluxOrg         string
		InfluxBucket      string
		MeasurementPrefix string

		RegistryURL string

		HTTPPort        int
		ShutdownTimeout time.Duration
	}{
		Broker: mqtt.BrokerConfig{
			Host:     envStr("MQTT_BROKER", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", ""),
			Password: envStr("MQTT_PASSWORD", ""),
			ClientID: envStr("HOSTNAME", "tank-telemetry"),
		},

		InfluxURL:         envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:       os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:         envStr("INFLUX_ORG", "icc"),
		InfluxBucket:      envStr("INFLUX_BUCKET", "pecera"),
		MeasurementPrefix: envStr("MEASUREMENT_PREFIX", "tank"),

		RegistryURL: envStr("REGISTRY_URL", ""),

		HTTPPort:        envInt("HTTP_PORT", 8080),
		ShutdownTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Device registry ===
	var registry device.Registry
	if cfg.RegistryURL != "" {
		registry = device.NewHTTPRegistry(cfg.RegistryURL, 3*time.Second)
	} else {
		log.Printf("telemetry: no REGISTRY_URL, using in-process device registry")
		registry = device.NewMemRegistry()
	}
	resolver := device.NewResolver(registry)

	// === InfluxDB / store ===
	influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	defer influx.Close()
	store, err := persistence.NewInfluxStore(influx, persistence.InfluxConfig{
		Org:               cfg.InfluxOrg,
		Bucket:            cfg.InfluxBucket,
		MeasurementPrefix: cfg.MeasurementPrefix,
	}, resolver)
	if err != nil {
		log.Fatalf("influx store: %v", err)
	}

	// === MQTT / dispatcher ===
	mqttClient, err := mqtt.NewConn(&cfg.Broker, ctx)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqtt.CloseConn(mqttClient)

	cache := telemetry.NewLatestCache()
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	consumer := mqtt.NewMultiConsumer(mqttClient, telemetry.Topics, nil)
	dispatcher := telemetry.NewDispatcher(consumer, cache, store, metrics)
	go dispatcher.Start(ctx)

	// === HTTP read surface ===
	engine := report.NewEngine(store)
	router := telemetry.NewRouter(cache, store, engine)
	router.Handle("/healthz", telemetry.NewHealthHandler(mqttClient, influx, store.Health()))
	router.Handle("/readyz", telemetry.NewReadyHandler(mqttClient, influx, store.Health(), 2*time.Second))
	router.Handle("/metrics", promhttp.Handler())

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           handlers.LoggingHandler(os.Stdout, router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("telemetry: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// === Wait for signal ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("telemetry: shutting down...")

	cancel()
	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
}
