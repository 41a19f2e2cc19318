// Package kafkabus mirrors sensor events delivered to the guest onto a Kafka
// topic so other services can audit sensor state changes.
package kafkabus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ilievs/sensorbridge/core"
)

const defaultQueueSize = 64

// messageWriter is the subset of kafka.Writer used by the mirror.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Options struct {
	Brokers []string
	Topic   string
	Timeout time.Duration
	// QueueSize bounds the records waiting for Kafka. Records beyond it are
	// dropped.
	QueueSize int
	Logger    *slog.Logger
}

// NewWriter builds a writer keyed by sensor name. Writes are synchronous; the
// mirror runs them off the caller's goroutine.
func NewWriter(opts Options) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// Mirror wraps the guest processor. Events go to the guest first; accepted
// events are then queued for Kafka and written by the mirror's own goroutine.
// Kafka failures are logged and never fail or delay guest delivery.
type Mirror struct {
	inner   core.MessageProcessor
	writer  messageWriter
	timeout time.Duration
	log     *slog.Logger

	queue     chan kafka.Message
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMirror starts the writer goroutine; call Close to stop it.
func NewMirror(inner core.MessageProcessor, writer messageWriter, opts Options) *Mirror {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	m := &Mirror{
		inner:   inner,
		writer:  writer,
		timeout: timeout,
		log:     logger.With(slog.String("component", "kafka-mirror"), slog.String("topic", opts.Topic)),
		queue:   make(chan kafka.Message, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

type record struct {
	Event   string `json:"event"`
	Sensor  string `json:"sensor"`
	Enabled bool   `json:"enabled"`
	DelayUs int64  `json:"delay_us"`
	At      int64  `json:"at"`
}

func (m *Mirror) ProcessSensorListed(ev core.SensorListed) (bool, error) {
	accepted, err := m.inner.ProcessSensorListed(ev)
	if err != nil || !accepted {
		return accepted, err
	}

	value, err := json.Marshal(record{
		Event:   "sensor_listed",
		Sensor:  ev.Sensor,
		Enabled: ev.Enabled,
		DelayUs: ev.DelayUs,
		At:      time.Now().UnixMilli(),
	})
	if err != nil {
		m.log.Warn("failed to encode mirror record", "sensor", ev.Sensor, "error", err)
		return true, nil
	}

	m.enqueue(kafka.Message{Key: []byte(ev.Sensor), Value: value, Time: time.Now()})
	return true, nil
}

func (m *Mirror) enqueue(msg kafka.Message) {
	select {
	case <-m.stop:
		m.log.Warn("mirror closed, dropping sensor event", "sensor", string(msg.Key))
		return
	default:
	}

	select {
	case m.queue <- msg:
	default:
		m.log.Warn("mirror queue full, dropping sensor event", "sensor", string(msg.Key))
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		select {
		case msg := <-m.queue:
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			m.write(ctx, msg)
			cancel()
		case <-m.stop:
			m.flush()
			return
		}
	}
}

// flush writes whatever is still queued, sharing a single timeout.
func (m *Mirror) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	for {
		select {
		case msg := <-m.queue:
			m.write(ctx, msg)
		default:
			return
		}
	}
}

func (m *Mirror) write(ctx context.Context, msg kafka.Message) {
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		m.log.Warn("failed to mirror sensor event", "sensor", string(msg.Key), "error", err)
	}
}

// Close stops the writer goroutine after flushing queued records. It does not
// close the underlying writer.
func (m *Mirror) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
	return nil
}

// ProcessReading forwards readings to the guest only; they are too chatty to
// mirror.
func (m *Mirror) ProcessReading(r core.Reading) error {
	if rp, ok := m.inner.(core.ReadingProcessor); ok {
		return rp.ProcessReading(r)
	}
	return nil
}
