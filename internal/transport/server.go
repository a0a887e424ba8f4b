// Package transport provides the HTTP API over the lifecycle service and the
// query engine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/ganot/worklog/internal/query"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the lifecycle and query operations over HTTP.
type Server struct {
	echo      *echo.Echo
	lifecycle *worklog.Service
	engine    *query.Engine
	logger    *slog.Logger
	config    Config
}

// NewServer creates the HTTP server. engine may be nil when the query side is
// not configured; the ask endpoint then answers 503.
func NewServer(lifecycle *worklog.Service, engine *query.Engine, cfg Config, logger *slog.Logger) (*Server, error) {
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		lifecycle: lifecycle,
		engine:    engine,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/tasks/start", s.handleStart)
	v1.POST("/tasks/stop", s.handleStop)
	v1.POST("/tasks/pause", s.handlePause)
	v1.GET("/tasks", s.handleAssignedTasks)
	v1.GET("/logs/latest", s.handleLatestLog)
	v1.POST("/ask", s.handleAsk)
}

// StartRequest is the body for POST /api/v1/tasks/start.
type StartRequest struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// StopRequest is the body for POST /api/v1/tasks/stop.
type StopRequest struct {
	LogID           string `json:"log_id"`
	Status          string `json:"status"`
	Comment         string `json:"comment"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// StopResponse reports the two independent outcomes of a stop.
type StopResponse struct {
	Log          *worklog.TaskLog `json:"log"`
	Archived     bool             `json:"archived"`
	ArchiveError string           `json:"archive_error,omitempty"`
}

// PauseRequest is the body for POST /api/v1/tasks/pause.
type PauseRequest struct {
	LogID           string `json:"log_id"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// AskRequest is the body for POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

// AskResponse carries the sanitized answer.
type AskResponse struct {
	Answer string `json:"answer"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStart(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	log, err := s.lifecycle.Start(c.Request().Context(), req.TaskID, req.UserID)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, log)
}

func (s *Server) handleStop(c echo.Context) error {
	var req StopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.lifecycle.Stop(c.Request().Context(), worklog.StopRequest{
		LogID:           req.LogID,
		Status:          req.Status,
		Comment:         req.Comment,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return s.mapError(err)
	}

	resp := StopResponse{Log: result.Log, Archived: result.Archived}
	if result.ArchiveErr != nil {
		resp.ArchiveError = result.ArchiveErr.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePause(c echo.Context) error {
	var req PauseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	log, err := s.lifecycle.Pause(c.Request().Context(), req.LogID, req.DurationSeconds)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, log)
}

func (s *Server) handleAssignedTasks(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id query parameter required")
	}

	tasks, err := s.lifecycle.AssignedTasks(c.Request().Context(), userID)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleLatestLog(c echo.Context) error {
	taskID := c.QueryParam("task_id")
	userID := c.QueryParam("user_id")
	if taskID == "" || userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task_id and user_id query parameters required")
	}

	log, err := s.lifecycle.LatestOpenLog(c.Request().Context(), taskID, userID)
	if err != nil {
		return s.mapError(err)
	}
	if log == nil {
		return c.JSON(http.StatusOK, map[string]any{"log": nil})
	}
	return c.JSON(http.StatusOK, map[string]any{"log": log})
}

func (s *Server) handleAsk(c echo.Context) error {
	if s.engine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "query engine not configured")
	}

	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question and user_id fields are required")
	}

	answer, err := s.engine.Ask(c.Request().Context(), req.Question, req.UserID)
	if err != nil {
		s.logger.Error("ask failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "query failed")
	}
	return c.JSON(http.StatusOK, AskResponse{Answer: answer})
}

// mapError translates domain errors to HTTP status codes.
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, worklog.ErrLogNotFound), errors.Is(err, worklog.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, worklog.ErrInvalidInput), errors.Is(err, worklog.ErrInvalidHours):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, worklog.ErrExternalService):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
