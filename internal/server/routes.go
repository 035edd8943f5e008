package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type percentageBody struct {
	Percentage *int `json:"percentage"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/fan", s.GetFanHandler)
	api.POST("/fan/on", s.TurnOnHandler)
	api.POST("/fan/off", s.TurnOffHandler)
	api.POST("/fan/toggle", s.ToggleHandler)
	api.PUT("/fan/percentage", s.SetPercentageHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) GetFanHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetFanStateRequest{}, 5*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	}
	resp, ok := res.(domain.GetFanStateResponse)
	if !ok {
		return c.JSON(http.StatusBadGateway, errorBody{Error: "unexpected response"})
	}
	return c.JSON(http.StatusOK, resp.State)
}

func (s *Server) TurnOnHandler(c echo.Context) error {
	var body percentageBody
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
		}
	}
	if body.Percentage != nil && !validPercentage(*body.Percentage) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "percentage must be between 0 and 100"})
	}
	return s.fanCommand(c, domain.FanTurnOnRequest{Percentage: body.Percentage})
}

func (s *Server) TurnOffHandler(c echo.Context) error {
	return s.fanCommand(c, domain.FanTurnOffRequest{})
}

func (s *Server) ToggleHandler(c echo.Context) error {
	return s.fanCommand(c, domain.FanTogglePowerRequest{})
}

func (s *Server) SetPercentageHandler(c echo.Context) error {
	var body percentageBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	if body.Percentage == nil || !validPercentage(*body.Percentage) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "percentage must be between 0 and 100"})
	}
	return s.fanCommand(c, domain.FanSetPercentageRequest{Percentage: *body.Percentage})
}

func (s *Server) fanCommand(c echo.Context, req domain.FanRequest) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, req, s.requestTimeout).Result()
	if errors.Is(err, actor.ErrTimeout) {
		// the fan actor keeps queued requests, it still runs once the current sequence ends
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: "fan busy, request queued: " + err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	}
	resp, ok := res.(domain.FanCommandResponse)
	if !ok {
		return c.JSON(http.StatusBadGateway, errorBody{Error: "unexpected response"})
	}
	if resp.HasResponseError() {
		return c.JSON(http.StatusBadGateway, errorBody{Error: resp.ResponseError.Error()})
	}
	return c.JSON(http.StatusOK, resp.State)
}

func validPercentage(p int) bool {
	return p >= 0 && p <= 100
}
