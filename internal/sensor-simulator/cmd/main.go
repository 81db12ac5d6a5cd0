package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	sim "github.com/icc-pecera/tank-telemetry/internal/sensor-simulator"
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
	_ = godotenv.Load()

	broker := mqtt.BrokerConfig{
		Host:     envStr("MQTT_BROKER", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     envStr("MQTT_USER", ""),
		Password: envStr("MQTT_PASSWORD", ""),
		ClientID: envStr("HOSTNAME", "tank-simulator"),
	}
	interval := time.Duration(envInt("PUBLISH_INTERVAL_SEC", 5)) * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mqtt.NewConn(&broker, ctx)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqtt.CloseConn(client)

	factory := func(topic string) mqtt.IPublisher {
		return mqtt.NewPublisher(client, topic)
	}
	gen := sim.NewDataGenerator(time.Now().UnixNano())
	s := sim.NewSimulator(factory,
		[3]string{telemetry.TopicHumidity, telemetry.TopicWaterLevel, telemetry.TopicWaterQuality},
		gen, interval)

	go s.Run(ctx)
	log.Printf("simulator: publishing every %s", interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("simulator: shutting down...")
}
