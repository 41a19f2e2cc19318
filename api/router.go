package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ilievs/sensorbridge/core"
)

// Dispatcher is the command loop the HTTP handlers submit to.
type Dispatcher interface {
	Submit(ctx context.Context, text string) (int, error)
	Snapshot(ctx context.Context) ([]core.SensorInfo, error)
}

type Server struct {
	dispatcher Dispatcher
	log        *slog.Logger
}

// NewRouter builds the control API. metricsHandler may be nil.
func NewRouter(dispatcher Dispatcher, metricsHandler http.Handler, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: dispatcher,
		log:        logger.With(slog.String("component", "http")),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "requestId", v.RequestID)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("4K"))

	// Routes
	e.POST("/commands", s.handleCommand)
	e.GET("/sensors", s.handleSensors)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	return e
}
