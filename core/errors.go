package core

import "errors"

// Status codes returned by HandleCommand. Guest code branches on these values,
// so they must never be renumbered.
const (
	StatusOK               = 0
	StatusMalformedCommand = -1
	StatusUnknownSensor    = -2
	StatusInvalidDelay     = -3
	StatusNoProcessor      = -4
	StatusDeliveryFailed   = -5
)

var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownSensor    = errors.New("unknown sensor")
	ErrInvalidDelay     = errors.New("invalid delay")
	ErrNoProcessor      = errors.New("no message processor installed")
	ErrDeliveryFailed   = errors.New("event delivery failed")
)

// StatusCode maps an error returned by the manager to its status code.
// A nil error maps to StatusOK.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrMalformedCommand):
		return StatusMalformedCommand
	case errors.Is(err, ErrUnknownSensor):
		return StatusUnknownSensor
	case errors.Is(err, ErrInvalidDelay):
		return StatusInvalidDelay
	case errors.Is(err, ErrNoProcessor):
		return StatusNoProcessor
	default:
		return StatusDeliveryFailed
	}
}
