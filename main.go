package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ilievs/sensorbridge/config"
	"github.com/ilievs/sensorbridge/system"
)

func main() {
	configPath := flag.String("config", "", "path to sensorbridge.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger := system.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run until interrupted
	go func() {
		if sig := system.WaitForOsSignal(ctx); sig != nil {
			logger.Info("shutting down", "signal", sig.String())
			cancel()
		}
	}()

	if err := RunApplication(ctx, cfg, logger); err != nil {
		logger.Error("sensorbridge stopped", "error", err)
		cancel()
		os.Exit(1)
	}
}
