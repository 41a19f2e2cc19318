package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ilievs/sensorbridge/core"
)

type Config struct {
	LogLevel string
	HTTP     HTTPConfig
	MQTT     MQTTConfig
	Kafka    KafkaConfig
	Sampling SamplingConfig
}

type HTTPConfig struct {
	Address string
}

type MQTTConfig struct {
	Address        string
	GuestClientID  string
	GuestUsername  string
	GuestPassword  string
	CommandTopic   string
	StatusTopic    string
	EventTopic     string
	ReadingPrefix  string
	EventRate      float64
	EventBurst     int
	CommandTimeout time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic     string
	Timeout   time.Duration
	QueueSize int
}

type SamplingConfig struct {
	// Interval is the sampling granularity. Readings are never emitted more
	// often than this, whatever delay a sensor is set to.
	Interval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("http.address", ":8080")

	v.SetDefault("mqtt.address", ":1883")
	v.SetDefault("mqtt.guest_client_id", "guest")
	v.SetDefault("mqtt.guest_username", "guest")
	v.SetDefault("mqtt.guest_password", "guest")
	v.SetDefault("mqtt.command_topic", "sensors/command")
	v.SetDefault("mqtt.status_topic", "sensors/status")
	v.SetDefault("mqtt.event_topic", "sensors/events")
	v.SetDefault("mqtt.reading_prefix", "sensors/readings")
	v.SetDefault("mqtt.event_rate", 0)
	v.SetDefault("mqtt.event_burst", 4)
	v.SetDefault("mqtt.command_timeout", "2s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "sensor-events")
	v.SetDefault("kafka.timeout", "3s")
	v.SetDefault("kafka.queue_size", 64)

	v.SetDefault("sampling.interval", core.ShortestDelay())
}

// Load reads configuration from the given file, or searches for
// sensorbridge.yaml in $HOME, /etc and the working directory when path is
// empty. A missing file is not an error. SENSORBRIDGE_* environment variables
// override both, e.g. SENSORBRIDGE_MQTT_ADDRESS.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("sensorbridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sensorbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("log_level"),
		HTTP: HTTPConfig{
			Address: v.GetString("http.address"),
		},
		MQTT: MQTTConfig{
			Address:        v.GetString("mqtt.address"),
			GuestClientID:  v.GetString("mqtt.guest_client_id"),
			GuestUsername:  v.GetString("mqtt.guest_username"),
			GuestPassword:  v.GetString("mqtt.guest_password"),
			CommandTopic:   v.GetString("mqtt.command_topic"),
			StatusTopic:    v.GetString("mqtt.status_topic"),
			EventTopic:     v.GetString("mqtt.event_topic"),
			ReadingPrefix:  v.GetString("mqtt.reading_prefix"),
			EventRate:      v.GetFloat64("mqtt.event_rate"),
			EventBurst:     v.GetInt("mqtt.event_burst"),
			CommandTimeout: v.GetDuration("mqtt.command_timeout"),
		},
		Kafka: KafkaConfig{
			Enabled:   v.GetBool("kafka.enabled"),
			Brokers:   v.GetStringSlice("kafka.brokers"),
			Topic:     v.GetString("kafka.topic"),
			Timeout:   v.GetDuration("kafka.timeout"),
			QueueSize: v.GetInt("kafka.queue_size"),
		},
		Sampling: SamplingConfig{
			Interval: v.GetDuration("sampling.interval"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	topics := []string{c.MQTT.CommandTopic, c.MQTT.StatusTopic, c.MQTT.EventTopic, c.MQTT.ReadingPrefix}
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t == "" {
			return errors.New("mqtt topics must not be empty")
		}
		if seen[t] {
			return fmt.Errorf("mqtt topic %q is used twice", t)
		}
		seen[t] = true
	}
	if c.MQTT.EventRate < 0 {
		return fmt.Errorf("mqtt.event_rate must not be negative, got %v", c.MQTT.EventRate)
	}
	if c.MQTT.EventRate > 0 && c.MQTT.EventBurst < 1 {
		return fmt.Errorf("mqtt.event_burst must be at least 1 when a rate is set, got %d", c.MQTT.EventBurst)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers must be set when kafka is enabled")
	}
	return nil
}
