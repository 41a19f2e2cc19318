package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"list", Command{Op: OpList}},
		{"  list\n", Command{Op: OpList}},
		{"delay orientation 5000", Command{Op: OpSetDelay, Kind: Orientation, Delay: 5 * time.Millisecond}},
		{"delay accelerometer -1", Command{Op: OpSetDelay, Kind: Accelerometer, Delay: -time.Microsecond}},
		{"activate magnetometer", Command{Op: OpToggle, Kind: Magnetometer, Enable: true}},
		{"deactivate\tproximity\r\n", Command{Op: OpToggle, Kind: Proximity, Enable: false}},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.line)
		if err != nil {
			t.Fatalf("ParseCommand(%q) failed: %v", tt.line, err)
		}
		if got != tt.want {
			t.Fatalf("ParseCommand(%q) = %+v, expected %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrMalformedCommand},
		{"   ", ErrMalformedCommand},
		{"list all", ErrMalformedCommand},
		{"delay orientation", ErrMalformedCommand},
		{"delay orientation 5000 1", ErrMalformedCommand},
		{"delay orientation 5ms", ErrMalformedCommand},
		{"delay orientation 99999999999999999999", ErrMalformedCommand},
		{"activate", ErrMalformedCommand},
		{"activate proximity now", ErrMalformedCommand},
		{"enable proximity", ErrMalformedCommand},
		{"LIST", ErrMalformedCommand},
		{"activate unknown_sensor", ErrUnknownSensor},
		{"delay gyroscope 5000", ErrUnknownSensor},
		{"deactivate Accelerometer", ErrUnknownSensor},
	}

	for _, tt := range tests {
		_, err := ParseCommand(tt.line)
		if !errors.Is(err, tt.want) {
			t.Fatalf("ParseCommand(%q) error = %v, expected %v", tt.line, err, tt.want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, StatusOK},
		{ErrMalformedCommand, StatusMalformedCommand},
		{ErrUnknownSensor, StatusUnknownSensor},
		{ErrInvalidDelay, StatusInvalidDelay},
		{ErrNoProcessor, StatusNoProcessor},
		{ErrDeliveryFailed, StatusDeliveryFailed},
	}

	seen := map[int]bool{}
	for _, tt := range tests {
		got := StatusCode(tt.err)
		if got != tt.want {
			t.Fatal("Expected status", tt.want, "for", tt.err, "but got", got)
		}
		if seen[got] {
			t.Fatal("Status", got, "is shared by more than one error")
		}
		seen[got] = true
	}
}
