// Package dispatch serializes access to a sensor manager. Every transport
// submits work to one Loop, which runs each request to completion before
// accepting the next and drives periodic sampling in between.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ilievs/sensorbridge/core"
)

var ErrStopped = errors.New("dispatch loop stopped")

// Observer receives per-command and per-sample outcomes. Implementations must
// not block.
type Observer interface {
	ObserveCommand(status int, elapsed time.Duration)
	ObserveReadings(n int)
}

type Options struct {
	// SampleInterval is how often enabled sensors are checked for due
	// readings. Zero disables sampling.
	SampleInterval time.Duration
	Observer       Observer
	Logger         *slog.Logger
}

type request struct {
	fn   func()
	done chan struct{}
}

type Loop struct {
	manager  core.SensorManager
	requests chan request
	stopped  chan struct{}
	opts     Options
	log      *slog.Logger
}

func NewLoop(manager core.SensorManager, opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		manager:  manager,
		requests: make(chan request),
		stopped:  make(chan struct{}),
		opts:     opts,
		log:      logger.With(slog.String("component", "dispatch")),
	}
}

// Run processes requests until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	var tick <-chan time.Time
	if l.opts.SampleInterval > 0 {
		ticker := time.NewTicker(l.opts.SampleInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	l.log.Info("dispatch loop started", "sampleInterval", l.opts.SampleInterval)
	for {
		select {
		case <-ctx.Done():
			l.log.Info("dispatch loop stopped")
			return ctx.Err()
		case req := <-l.requests:
			req.fn()
			close(req.done)
		case now := <-tick:
			l.sample(now)
		}
	}
}

func (l *Loop) sample(now time.Time) {
	n, err := l.manager.Sample(now)
	if err != nil {
		l.log.Warn("sampling failed", "error", err)
	}
	if n > 0 && l.opts.Observer != nil {
		l.opts.Observer.ObserveReadings(n)
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case l.requests <- req:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// once accepted the request always completes, so waiting is bounded
	<-req.done
	return nil
}

// Submit hands a guest command to the manager and returns its result.
func (l *Loop) Submit(ctx context.Context, text string) (int, error) {
	var (
		result int
		cmdErr error
	)

	err := l.do(ctx, func() {
		start := time.Now()
		result, cmdErr = l.manager.HandleCommand(text)
		if l.opts.Observer != nil {
			status := core.StatusOK
			if cmdErr != nil {
				status = result
			}
			l.opts.Observer.ObserveCommand(status, time.Since(start))
		}
	})
	if err != nil {
		return 0, err
	}

	if cmdErr != nil {
		l.log.Debug("command rejected", "command", text, "status", result, "error", cmdErr)
	} else {
		l.log.Debug("command handled", "command", text, "result", result)
	}
	return result, cmdErr
}

// Snapshot returns the current state of every sensor.
func (l *Loop) Snapshot(ctx context.Context) ([]core.SensorInfo, error) {
	var infos []core.SensorInfo
	if err := l.do(ctx, func() { infos = l.manager.Sensors() }); err != nil {
		return nil, err
	}
	return infos, nil
}
