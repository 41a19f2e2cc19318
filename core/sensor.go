package core

import (
	"fmt"
	"time"
)

// Kind identifies one of the fixed virtual sensor devices.
type Kind int

const (
	Accelerometer Kind = iota
	Magnetometer
	Orientation
	Proximity
)

// Kinds lists every sensor kind in canonical listing order.
var Kinds = [...]Kind{Accelerometer, Magnetometer, Orientation, Proximity}

var kindNames = [...]string{
	Accelerometer: "accelerometer",
	Magnetometer:  "magnetometer",
	Orientation:   "orientation",
	Proximity:     "proximity",
}

// Minimum supported sampling interval of each kind.
var minDelays = [...]time.Duration{
	Accelerometer: 1000 * time.Microsecond,
	Magnetometer:  2000 * time.Microsecond,
	Orientation:   5000 * time.Microsecond,
	Proximity:     10000 * time.Microsecond,
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MinDelay returns the shortest sampling interval the kind accepts, or zero
// for an unknown kind.
func (k Kind) MinDelay() time.Duration {
	if !k.valid() {
		return 0
	}
	return minDelays[k]
}

// ShortestDelay is the smallest MinDelay across all kinds.
func ShortestDelay() time.Duration {
	shortest := minDelays[Kinds[0]]
	for _, k := range Kinds[1:] {
		shortest = min(shortest, k.MinDelay())
	}
	return shortest
}

func (k Kind) valid() bool {
	return k >= Accelerometer && k <= Proximity
}

// ParseKind resolves a lower-case sensor name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSensor, name)
}

// Sensor is a virtual device owned by a sensor manager.
type Sensor struct {
	kind       Kind
	enabled    bool
	delay      time.Duration
	lastSample time.Time
}

func newSensor(kind Kind) *Sensor {
	return &Sensor{
		kind:  kind,
		delay: kind.MinDelay(),
	}
}

func (s *Sensor) Kind() Kind {
	return s.kind
}

func (s *Sensor) Enabled() bool {
	return s.enabled
}

// SetEnabled switches the sensor on or off. Enabling an idle sensor makes it
// due for sampling right away.
func (s *Sensor) SetEnabled(enabled bool) {
	if enabled && !s.enabled {
		s.lastSample = time.Time{}
	}
	s.enabled = enabled
}

func (s *Sensor) Delay() time.Duration {
	return s.delay
}

func (s *Sensor) SetDelay(delay time.Duration) error {
	if delay < s.kind.MinDelay() {
		return fmt.Errorf("%w: %s needs at least %dus, got %dus",
			ErrInvalidDelay, s.kind, s.kind.MinDelay().Microseconds(), delay.Microseconds())
	}
	s.delay = delay
	return nil
}

// due reports whether a reading should be taken at now.
func (s *Sensor) due(now time.Time) bool {
	return s.enabled && (s.lastSample.IsZero() || now.Sub(s.lastSample) >= s.delay)
}

// SensorInfo is a value snapshot of a sensor's state.
type SensorInfo struct {
	Kind    Kind          `json:"-"`
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
	Delay   time.Duration `json:"-"`
	DelayUs int64         `json:"delay_us"`
}

func (s *Sensor) info() SensorInfo {
	return SensorInfo{
		Kind:    s.kind,
		Name:    s.kind.String(),
		Enabled: s.enabled,
		Delay:   s.delay,
		DelayUs: s.delay.Microseconds(),
	}
}
