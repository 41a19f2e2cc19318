package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForOsSignal blocks until SIGINT or SIGTERM arrives or ctx is done and
// returns the signal, nil when ctx ended first.
func WaitForOsSignal(ctx context.Context) os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		return sig
	case <-ctx.Done():
		return nil
	}
}
