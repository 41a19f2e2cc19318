package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Largest delay, in microseconds, that fits a time.Duration.
const maxDelayUs = math.MaxInt64 / int64(time.Microsecond)

type Op int

const (
	OpList Op = iota
	OpSetDelay
	OpToggle
)

func (o Op) String() string {
	switch o {
	case OpList:
		return "list"
	case OpSetDelay:
		return "delay"
	case OpToggle:
		return "toggle"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Command is a parsed guest request. Kind is meaningful for OpSetDelay and
// OpToggle, Delay only for OpSetDelay and Enable only for OpToggle.
type Command struct {
	Op     Op
	Kind   Kind
	Delay  time.Duration
	Enable bool
}

// ParseCommand decodes a single command line:
//
//	list
//	delay <sensor> <microseconds>
//	activate <sensor>
//	deactivate <sensor>
func ParseCommand(line string) (Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrMalformedCommand)
	}

	verb, args := tokens[0], tokens[1:]
	switch verb {
	case "list":
		if len(args) != 0 {
			return Command{}, argCountError(verb, 0, len(args))
		}
		return Command{Op: OpList}, nil

	case "delay":
		if len(args) != 2 {
			return Command{}, argCountError(verb, 2, len(args))
		}
		kind, err := ParseKind(args[0])
		if err != nil {
			return Command{}, err
		}
		us, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return Command{}, fmt.Errorf("%w: delay %q is not an integer", ErrMalformedCommand, args[1])
		}
		if us > maxDelayUs || us < -maxDelayUs {
			return Command{}, fmt.Errorf("%w: delay %q out of range", ErrMalformedCommand, args[1])
		}
		return Command{Op: OpSetDelay, Kind: kind, Delay: time.Duration(us) * time.Microsecond}, nil

	case "activate", "deactivate":
		if len(args) != 1 {
			return Command{}, argCountError(verb, 1, len(args))
		}
		kind, err := ParseKind(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpToggle, Kind: kind, Enable: verb == "activate"}, nil

	default:
		return Command{}, fmt.Errorf("%w: unknown verb %q", ErrMalformedCommand, verb)
	}
}

func argCountError(verb string, want, got int) error {
	return fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrMalformedCommand, verb, want, got)
}
