package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ilievs/sensorbridge/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensorbridge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal("failed to write config:", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal("Load failed:", err)
	}

	if cfg.HTTP.Address != ":8080" || cfg.MQTT.Address != ":1883" {
		t.Fatal("Unexpected default addresses", cfg.HTTP.Address, cfg.MQTT.Address)
	}
	if cfg.MQTT.CommandTopic != "sensors/command" || cfg.MQTT.ReadingPrefix != "sensors/readings" {
		t.Fatal("Unexpected default topics", cfg.MQTT)
	}
	if cfg.MQTT.CommandTimeout != 2*time.Second || cfg.Sampling.Interval != core.Accelerometer.MinDelay() {
		t.Fatal("Unexpected default durations", cfg.MQTT.CommandTimeout, cfg.Sampling.Interval)
	}
	if cfg.Kafka.Enabled || cfg.Kafka.QueueSize != 64 {
		t.Fatal("Expected kafka to be disabled with a 64 record queue by default", cfg.Kafka)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
mqtt:
  address: ":2883"
  guest_client_id: android
  event_rate: 100
  event_burst: 2
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
sampling:
  interval: 20ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal("Load failed:", err)
	}
	if cfg.LogLevel != "debug" || cfg.MQTT.Address != ":2883" || cfg.MQTT.GuestClientID != "android" {
		t.Fatal("Expected file values to win, but got", cfg.LogLevel, cfg.MQTT)
	}
	if cfg.MQTT.EventRate != 100 || cfg.MQTT.EventBurst != 2 {
		t.Fatal("Unexpected rate limit", cfg.MQTT.EventRate, cfg.MQTT.EventBurst)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Fatal("Unexpected kafka config", cfg.Kafka)
	}
	if cfg.Sampling.Interval != 20*time.Millisecond {
		t.Fatal("Expected sampling 20ms, but got", cfg.Sampling.Interval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SENSORBRIDGE_HTTP_ADDRESS", ":9999")

	cfg, err := Load(writeConfig(t, "http:\n  address: \":7000\"\n"))
	if err != nil {
		t.Fatal("Load failed:", err)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatal("Expected the environment to win, but got", cfg.HTTP.Address)
	}
}

func TestLoadRejectsDuplicateTopics(t *testing.T) {
	_, err := Load(writeConfig(t, "mqtt:\n  status_topic: sensors/events\n"))
	if err == nil {
		t.Fatal("Expected duplicate topics to be rejected")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected a missing explicit file to fail")
	}
}
