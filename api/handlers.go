package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ilievs/sensorbridge/core"
)

type CommandRequest struct {
	Command string `json:"command"`
}

type CommandResponse struct {
	Command string `json:"command"`
	Status  int    `json:"status"`
	Error   string `json:"error,omitempty"`
}

type SensorsResponse struct {
	Sensors []core.SensorInfo `json:"sensors"`
}

// commandText accepts either a JSON body {"command": "..."} or the raw
// command line as the body.
func commandText(c echo.Context) (string, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		req := new(CommandRequest)
		if err := c.Bind(req); err != nil {
			return "", err
		}
		return req.Command, nil
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func httpStatus(code int) int {
	switch code {
	case core.StatusMalformedCommand, core.StatusUnknownSensor, core.StatusInvalidDelay:
		return http.StatusBadRequest
	case core.StatusNoProcessor:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleCommand(c echo.Context) error {
	text, err := commandText(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read command")
	}

	status, err := s.dispatcher.Submit(c.Request().Context(), text)
	resp := CommandResponse{Command: strings.TrimSpace(text), Status: status}
	if err == nil {
		return c.JSON(http.StatusOK, resp)
	}

	resp.Error = err.Error()
	if status >= 0 {
		// never reached the manager
		s.log.Warn("command not dispatched", "command", resp.Command, "error", err)
		resp.Status = core.StatusCode(err)
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(httpStatus(status), resp)
}

func (s *Server) handleSensors(c echo.Context) error {
	infos, err := s.dispatcher.Snapshot(c.Request().Context())
	if err != nil {
		s.log.Warn("snapshot failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, SensorsResponse{Sensors: infos})
}
