package core

import (
	"fmt"
	"sync"
	"time"
)

// cursorIdle marks the listing state machine as not currently listing.
const cursorIdle = 0

// BasicSensorManager owns the four virtual sensors. HandleCommand and Sample
// must be called from a single goroutine; only the processor may be swapped
// concurrently.
type BasicSensorManager struct {
	sensors [len(Kinds)]*Sensor

	// index of the next sensor to list; cursorIdle when not listing
	cursor int

	processorMutex sync.RWMutex
	processor      MessageProcessor
}

func NewBasicSensorManager() *BasicSensorManager {
	m := &BasicSensorManager{cursor: cursorIdle}
	for i, k := range Kinds {
		m.sensors[i] = newSensor(k)
	}
	return m
}

func (m *BasicSensorManager) SetMessageProcessor(p MessageProcessor) {
	m.processorMutex.Lock()
	defer m.processorMutex.Unlock()
	m.processor = p
}

func (m *BasicSensorManager) messageProcessor() MessageProcessor {
	m.processorMutex.RLock()
	defer m.processorMutex.RUnlock()
	return m.processor
}

func (m *BasicSensorManager) HandleCommand(text string) (int, error) {
	cmd, err := ParseCommand(text)
	if err != nil {
		return StatusCode(err), err
	}

	switch cmd.Op {
	case OpList:
		n, err := m.listSensors()
		if err != nil {
			return StatusCode(err), err
		}
		return n, nil
	case OpSetDelay:
		if err := m.sensor(cmd.Kind).SetDelay(cmd.Delay); err != nil {
			return StatusCode(err), err
		}
	case OpToggle:
		m.sensor(cmd.Kind).SetEnabled(cmd.Enable)
	default:
		err := fmt.Errorf("%w: unsupported op %s", ErrMalformedCommand, cmd.Op)
		return StatusCode(err), err
	}
	return StatusOK, nil
}

func (m *BasicSensorManager) sensor(k Kind) *Sensor {
	return m.sensors[k]
}

// listSensors emits one event per sensor starting at the cursor. It stops
// early when the processor refuses an event, leaving the cursor on that sensor
// so the next list resumes there.
func (m *BasicSensorManager) listSensors() (int, error) {
	p := m.messageProcessor()
	if p == nil {
		return 0, ErrNoProcessor
	}

	listed := 0
	for m.cursor < len(m.sensors) {
		s := m.sensors[m.cursor]
		accepted, err := p.ProcessSensorListed(SensorListed{
			Kind:    s.kind,
			Sensor:  s.kind.String(),
			Enabled: s.enabled,
			Delay:   s.delay,
			DelayUs: s.delay.Microseconds(),
		})
		if err != nil {
			return listed, fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, s.kind, err)
		}
		if !accepted {
			return listed, nil
		}
		listed++
		m.cursor++
	}

	m.cursor = cursorIdle
	return listed, nil
}

func (m *BasicSensorManager) Sensors() []SensorInfo {
	infos := make([]SensorInfo, 0, len(m.sensors))
	for _, s := range m.sensors {
		infos = append(infos, s.info())
	}
	return infos
}

func (m *BasicSensorManager) Sample(now time.Time) (int, error) {
	rp, ok := m.messageProcessor().(ReadingProcessor)
	if !ok {
		return 0, nil
	}

	sampled := 0
	for _, s := range m.sensors {
		if !s.due(now) {
			continue
		}
		if err := rp.ProcessReading(Synthesize(s.kind, now)); err != nil {
			return sampled, fmt.Errorf("%w: %s reading: %w", ErrDeliveryFailed, s.kind, err)
		}
		s.lastSample = now
		sampled++
	}
	return sampled, nil
}
