package core

import "time"

// SensorListed describes one sensor during a list command.
type SensorListed struct {
	Kind    Kind          `json:"-"`
	Sensor  string        `json:"sensor"`
	Enabled bool          `json:"enabled"`
	Delay   time.Duration `json:"-"`
	DelayUs int64         `json:"delay_us"`
}

// MessageProcessor delivers manager events to the guest. Returning
// accepted=false with a nil error means the processor cannot take more events
// right now; a non-nil error is a delivery failure.
type MessageProcessor interface {
	ProcessSensorListed(ev SensorListed) (accepted bool, err error)
}

// ReadingProcessor is implemented by processors that also forward
// synthesized readings.
type ReadingProcessor interface {
	ProcessReading(r Reading) error
}

type SensorManager interface {

	// HandleCommand parses and applies a guest command. It returns the number
	// of sensors listed for list, 0 for the other commands, or a negative
	// status code with the error that caused it.
	HandleCommand(text string) (int, error)

	SetMessageProcessor(p MessageProcessor)

	Sensors() []SensorInfo

	// Sample emits readings for every enabled sensor whose delay has elapsed.
	Sample(now time.Time) (int, error)
}
