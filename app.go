package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/ilievs/sensorbridge/api"
	"github.com/ilievs/sensorbridge/config"
	"github.com/ilievs/sensorbridge/core"
	"github.com/ilievs/sensorbridge/dispatch"
	"github.com/ilievs/sensorbridge/kafkabus"
	"github.com/ilievs/sensorbridge/metrics"
	"github.com/ilievs/sensorbridge/mqtt"
)

func topics(cfg *config.Config) mqtt.Topics {
	return mqtt.Topics{
		Command:       cfg.MQTT.CommandTopic,
		Status:        cfg.MQTT.StatusTopic,
		Events:        cfg.MQTT.EventTopic,
		ReadingPrefix: cfg.MQTT.ReadingPrefix,
	}
}

// guestProcessor builds the processor installed while the guest is connected,
// optionally mirrored to Kafka. The returned closer stops the mirror and
// releases the Kafka writer.
func guestProcessor(cfg *config.Config, publisher mqtt.Publisher, logger *slog.Logger) (core.MessageProcessor, func() error) {
	var limiter *rate.Limiter
	if cfg.MQTT.EventRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MQTT.EventRate), cfg.MQTT.EventBurst)
	}
	var processor core.MessageProcessor = mqtt.NewGuestProcessor(publisher, topics(cfg), limiter)

	if !cfg.Kafka.Enabled {
		return processor, func() error { return nil }
	}

	opts := kafkabus.Options{
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Timeout:   cfg.Kafka.Timeout,
		QueueSize: cfg.Kafka.QueueSize,
		Logger:    logger,
	}
	writer := kafkabus.NewWriter(opts)
	logger.Info("mirroring sensor events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	mirror := kafkabus.NewMirror(processor, writer, opts)
	return mirror, func() error {
		mirror.Close()
		return writer.Close()
	}
}

// RunApplication wires the sensor manager to the guest broker and the HTTP
// API and serves until ctx is cancelled.
func RunApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sensorMan := core.NewBasicSensorManager()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	loop := dispatch.NewLoop(sensorMan, dispatch.Options{
		SampleInterval: cfg.Sampling.Interval,
		Observer:       appMetrics,
		Logger:         logger,
	})
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(ctx)
	}()

	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       logger.With(slog.String("component", "mochi")),
	})
	mqttClient := mqtt.NewMochiClient(server)

	processor, closeProcessor := guestProcessor(cfg, mqttClient, logger)
	defer func() {
		if err := closeProcessor(); err != nil {
			logger.Warn("failed to close kafka writer", "error", err)
		}
	}()

	broker := mqtt.NewMochiBroker(server, mqtt.BrokerOptions{
		Address:       cfg.MQTT.Address,
		GuestUsername: cfg.MQTT.GuestUsername,
		GuestPassword: cfg.MQTT.GuestPassword,
		Topics:        topics(cfg),
		Logger:        logger,
	})
	err := broker.Start(
		[]mochi.Hook{new(mqtt.GuestSessionHook)},
		[]any{&mqtt.HookOptions{
			GuestClientID: cfg.MQTT.GuestClientID,
			Processor:     processor,
			Installer:     sensorMan,
			OnGuestChange: appMetrics.SetGuestConnected,
			Logger:        logger,
		}})
	if err != nil {
		return fmt.Errorf("start broker: %w", err)
	}
	defer broker.Close()

	commands := mqtt.NewCommandHandler(loop, mqttClient, topics(cfg), cfg.MQTT.CommandTimeout, logger)
	if err := broker.Subscribe(cfg.MQTT.CommandTopic, commands.Handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.MQTT.CommandTopic, err)
	}

	e := api.NewRouter(loop, appMetrics.Handler(), logger)
	httpDone := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "address", cfg.HTTP.Address)
		if err := e.Start(cfg.HTTP.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpDone <- err
			return
		}
		httpDone <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		if err != nil {
			return fmt.Errorf("http api: %w", err)
		}
	case err := <-loopDone:
		if ctx.Err() == nil {
			return fmt.Errorf("dispatch loop exited: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	return nil
}
