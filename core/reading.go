package core

import (
	"math"
	"math/rand/v2"
	"time"
)

// Reading is a synthesized sample for one sensor.
type Reading struct {
	Kind      Kind      `json:"-"`
	Sensor    string    `json:"sensor"`
	Values    []float64 `json:"values"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	standardGravity = 9.80665
	// Field strength in microtesla, roughly what a phone lying flat sees.
	earthFieldX, earthFieldY, earthFieldZ = 22.0, 5.9, -43.6
	proximityFar                          = 5.0
)

// Synthesize produces a plausible reading for a device resting on a table
// with a little sensor noise.
func Synthesize(kind Kind, t time.Time) Reading {
	var values []float64
	switch kind {
	case Accelerometer:
		values = []float64{noise(0.05), noise(0.05), standardGravity + noise(0.05)}
	case Magnetometer:
		values = []float64{earthFieldX + noise(0.5), earthFieldY + noise(0.5), earthFieldZ + noise(0.5)}
	case Orientation:
		// azimuth slowly drifts around the compass, pitch and roll stay flat
		azimuth := math.Mod(float64(t.UnixMilli())/1000.0, 360)
		values = []float64{azimuth, noise(0.2), noise(0.2)}
	case Proximity:
		values = []float64{proximityFar}
	}

	return Reading{
		Kind:      kind,
		Sensor:    kind.String(),
		Values:    values,
		Timestamp: t,
	}
}

func noise(amplitude float64) float64 {
	return (rand.Float64()*2 - 1) * amplitude
}
