// Package httpapi exposes the guardrail store operations as a JSON REST API.
//
// Every route is registered twice, at the root and under /api/v1, so clients
// can use either the bare or the versioned path.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guardraild/internal/config"
	"github.com/fyrsmithlabs/guardraild/internal/store"
)

// Server provides the guardraild HTTP API.
type Server struct {
	echo   *echo.Echo
	store  store.Store
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer creates the HTTP API server around the given store.
func NewServer(cfg *config.Config, st store.Store, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(metrics.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		store:  st,
		cfg:    cfg,
		logger: logger,
	}

	s.registerRoutes()
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return s, nil
}

// registerRoutes sets up every endpoint at the root and under /api/v1.
func (s *Server) registerRoutes() {
	for _, prefix := range []string{"", "/api/v1"} {
		g := s.echo.Group(prefix)
		g.GET("/health", s.handleHealth)
		g.GET("/models", s.handleListModels)
		g.POST("/guardrails", s.handleCreate)
		g.POST("/guardrails/search", s.handleSearch)
		g.GET("/guardrails/:id", s.handleGet)
		g.DELETE("/guardrails/:id", s.handleDelete)
	}
}

// handleHealth reports liveness. The endpoint itself never fails; an
// unreachable store degrades the status field instead.
func (s *Server) handleHealth(c echo.Context) error {
	connected := s.store.Ready(c.Request().Context())

	status := "healthy"
	if !connected {
		status = "degraded"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:            status,
		WeaviateConnected: connected,
	})
}

// handleListModels returns the configured model allow-list.
func (s *Server) handleListModels(c echo.Context) error {
	models := s.cfg.Models
	if models == nil {
		models = []string{}
	}
	return c.JSON(http.StatusOK, ModelsResponse{Models: models})
}

// handleCreate stores a new guardrail. The model allow-list is enforced here
// and only here; search accepts any model name.
func (s *Server) handleCreate(c echo.Context) error {
	var req CreateGuardrailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Prompt == "" || req.ModelName == "" || req.Guardrails == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt, model_name and guardrails are required")
	}

	if len(s.cfg.Models) > 0 && !s.modelAllowed(req.ModelName) {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Invalid model name. Available models: %v", s.cfg.Models))
	}

	id, err := s.store.Add(c.Request().Context(), req.Prompt, req.ModelName, req.Guardrails)
	if err != nil {
		s.logger.Error("failed to create guardrail", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create guardrail")
	}

	return c.JSON(http.StatusCreated, GuardrailCreatedResponse{
		ID:      id,
		Message: "Guardrail created successfully",
	})
}

// handleSearch runs a hybrid search strictly filtered by model name.
func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Prompt == "" || req.ModelName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt and model_name are required")
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	if limit < 1 || limit > 100 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
	}

	results, err := s.store.Search(c.Request().Context(), req.Prompt, req.ModelName, limit, s.cfg.Search.Alpha)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed")
	}
	if results == nil {
		results = []store.Guardrail{}
	}

	return c.JSON(http.StatusOK, SearchResponse{
		Results: results,
		Count:   len(results),
	})
}

// handleGet returns a single guardrail by id.
func (s *Server) handleGet(c echo.Context) error {
	g, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("failed to fetch guardrail", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch guardrail")
	}
	if g == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Guardrail not found")
	}
	return c.JSON(http.StatusOK, g)
}

// handleDelete removes a guardrail by id. A missing id is 404; a store
// communication failure is 500, not 404, so transient faults are not
// misreported as absence.
func (s *Server) handleDelete(c echo.Context) error {
	deleted, err := s.store.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("failed to delete guardrail", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete guardrail")
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "Guardrail not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) modelAllowed(name string) bool {
	for _, m := range s.cfg.Models {
		if m == name {
			return true
		}
	}
	return false
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port)
	s.logger.Info("starting http api server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http api server")
	return s.echo.Shutdown(ctx)
}
