package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	commandsTotal   *prometheus.CounterVec
	commandDuration prometheus.Histogram
	readingsTotal   prometheus.Counter
	guestConnected  prometheus.Gauge
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorbridge_commands_total",
			Help: "Total guest commands handled, by status code.",
		}, []string{"status"}),
		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sensorbridge_command_duration_seconds",
			Help:    "Histogram of guest command handling durations.",
			Buckets: prometheus.DefBuckets,
		}),
		readingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorbridge_readings_total",
			Help: "Total synthesized readings delivered to the guest.",
		}),
		guestConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensorbridge_guest_connected",
			Help: "1 while a guest processor is installed, 0 otherwise.",
		}),
	}

	registry.MustRegister(
		m.commandsTotal,
		m.commandDuration,
		m.readingsTotal,
		m.guestConnected,
	)

	return m
}

func (m *Metrics) ObserveCommand(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.commandDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveReadings(n int) {
	if m == nil {
		return
	}
	m.readingsTotal.Add(float64(n))
}

func (m *Metrics) SetGuestConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.guestConnected.Set(1)
	} else {
		m.guestConnected.Set(0)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
