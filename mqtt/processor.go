package mqtt

import (
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ilievs/sensorbridge/core"
)

// GuestProcessor delivers manager events to the guest over MQTT. When a
// limiter is set, events beyond its rate are refused so a list command stops
// early and resumes on the next list.
type GuestProcessor struct {
	publisher Publisher
	topics    Topics
	limiter   *rate.Limiter
}

func NewGuestProcessor(publisher Publisher, topics Topics, limiter *rate.Limiter) *GuestProcessor {
	return &GuestProcessor{
		publisher: publisher,
		topics:    topics,
		limiter:   limiter,
	}
}

func (p *GuestProcessor) ProcessSensorListed(ev core.SensorListed) (bool, error) {
	if p.limiter != nil && !p.limiter.Allow() {
		return false, nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return false, err
	}
	if err := p.publisher.Publish(p.topics.Events, payload); err != nil {
		return false, fmt.Errorf("publish %s: %w", p.topics.Events, err)
	}
	return true, nil
}

func (p *GuestProcessor) ProcessReading(r core.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}

	topic := p.topics.ReadingPrefix + "/" + r.Sensor
	if err := p.publisher.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
