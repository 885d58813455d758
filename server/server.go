// Package server exposes the agent over HTTP: synchronous and SSE
// streaming query endpoints, session management, monitoring and the
// prometheus scrape endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chronicler-ai/chronicler"
	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/logging"
)

// Options configure the HTTP server.
type Options struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Server is the HTTP facade over an Agent.
type Server struct {
	echo   *echo.Echo
	agent  *chronicler.Agent
	addr   string
	logger logging.Logger
}

// New builds the server and registers all routes.
func New(agent *chronicler.Agent, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:   ":8000",
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, agent: agent, addr: opts.Addr, logger: opts.Logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api/agent")
	api.POST("/query", s.handleQuery)
	api.POST("/query/stream", s.handleQueryStream)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleClearSession)
	api.DELETE("/sessions", s.handleClearAllSessions)
	api.POST("/sessions/:id/cancel", s.handleCancelSession)
	api.GET("/monitoring", s.handleMonitoring)
	api.GET("/health", s.handleHealth)
	api.GET("/tools", s.handleListTools)

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/healthz", s.handleLiveness)
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	err := s.echo.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// queryRequest is the body of both query endpoints.
type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Error core.ErrorInfo `json:"error"`
}

// httpStatus maps the error taxonomy onto HTTP status codes. Internal
// error text for unclassified failures never reaches the client.
func httpStatus(code core.ErrorCode) int {
	switch code {
	case core.CodeSessionNotFound:
		return http.StatusNotFound
	case core.CodeAlreadyInProgress:
		return http.StatusConflict
	case core.CodeValidation:
		return http.StatusBadRequest
	case core.CodeRateLimited:
		return http.StatusTooManyRequests
	case core.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(c echo.Context, err error) error {
	info := core.InfoFromError(err)
	status := httpStatus(info.Code)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		info = &core.ErrorInfo{Code: info.Code, Message: "internal error"}
	}
	return c.JSON(status, errorBody{Error: *info})
}

func (s *Server) bindQuery(c echo.Context) (*queryRequest, error) {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return nil, core.NewAgentError(core.CodeValidation, "invalid request body")
	}
	if req.Query == "" {
		return nil, core.NewAgentError(core.CodeValidation, "query must not be empty")
	}
	return &req, nil
}

func (s *Server) handleQuery(c echo.Context) error {
	req, err := s.bindQuery(c)
	if err != nil {
		return s.errorResponse(c, err)
	}
	result, err := s.agent.SubmitQuery(c.Request().Context(), req.Query, req.SessionID)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetSession(c echo.Context) error {
	snap, err := s.agent.GetSession(c.Param("id"))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleListSessions(c echo.Context) error {
	summaries := s.agent.ListSessions()
	return c.JSON(http.StatusOK, map[string]any{
		"sessions":       summaries,
		"total_sessions": len(summaries),
	})
}

func (s *Server) handleClearSession(c echo.Context) error {
	if err := s.agent.ClearSession(c.Param("id")); err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    fmt.Sprintf("Session %s cleared", c.Param("id")),
		"session_id": c.Param("id"),
	})
}

func (s *Server) handleClearAllSessions(c echo.Context) error {
	cleared := s.agent.ClearAllSessions()
	return c.JSON(http.StatusOK, map[string]any{
		"message":          fmt.Sprintf("Cleared %d sessions", cleared),
		"sessions_cleared": cleared,
	})
}

func (s *Server) handleCancelSession(c echo.Context) error {
	if err := s.agent.CancelSession(c.Param("id")); err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"session_id": c.Param("id"),
		"cancelling": true,
	})
}

// handleMonitoring splits the aggregated snapshot into a health block
// and a statistics block with performance and tool-usage sections.
func (s *Server) handleMonitoring(c echo.Context) error {
	snap := s.agent.Monitoring()
	return c.JSON(http.StatusOK, map[string]any{
		"health": map[string]any{
			"status":                snap.Health,
			"success_rate":          snap.SuccessRate,
			"total_sessions":        snap.TotalSessions,
			"recent_errors":         snap.RecentErrorCount,
			"average_response_time": snap.AverageResponseTime,
		},
		"statistics": map[string]any{
			"performance": map[string]any{
				"total_sessions":                 snap.TotalSessions,
				"successful_sessions":            snap.SuccessfulSessions,
				"failed_sessions":                snap.FailedSessions,
				"success_rate":                   snap.SuccessRate,
				"total_tool_calls":               snap.TotalToolCalls,
				"average_tool_calls_per_session": snap.AverageToolCallsPerSession,
				"average_session_time":           snap.AverageResponseTime,
			},
			"tool_usage":    snap.ToolUsage,
			"recent_errors": snap.RecentErrors,
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	report := s.agent.Health()
	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func (s *Server) handleListTools(c echo.Context) error {
	tools := s.agent.Tools()
	return c.JSON(http.StatusOK, map[string]any{
		"tools": tools,
		"total": len(tools),
	})
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
