// Package webui serves the browser front-end for guardraild.
//
// The UI is stateless: every workflow is a form post that calls the HTTP API
// over the network and renders the JSON response. The model list comes from
// the API's /models endpoint, with a hardcoded fallback when the API is down.
package webui

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guardraild/internal/httpapi"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server renders the guardraild web UI.
type Server struct {
	echo   *echo.Echo
	api    *Client
	tmpl   *template.Template
	port   int
	logger *zap.Logger
}

// pageData is the template payload for the single UI page.
type pageData struct {
	Models []string

	AddPrompt     string
	AddModel      string
	AddGuardrails string
	AddResult     *httpapi.GuardrailCreatedResponse
	AddError      string

	SearchPrompt string
	SearchModel  string
	SearchLimit  int
	SearchResult *httpapi.SearchResponse
	SearchError  string
}

// NewServer creates the UI server talking to the API at apiBaseURL.
func NewServer(apiBaseURL string, port int, logger *zap.Logger) (*Server, error) {
	if apiBaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		api:    NewClient(apiBaseURL),
		tmpl:   tmpl,
		port:   port,
		logger: logger,
	}

	e.GET("/", s.handleIndex)
	e.POST("/add", s.handleAdd)
	e.POST("/search", s.handleSearch)

	return s, nil
}

func (s *Server) handleIndex(c echo.Context) error {
	return s.render(c, s.newPageData(c.Request().Context()))
}

func (s *Server) handleAdd(c echo.Context) error {
	ctx := c.Request().Context()
	data := s.newPageData(ctx)
	data.AddPrompt = c.FormValue("prompt")
	data.AddModel = c.FormValue("model_name")
	data.AddGuardrails = c.FormValue("guardrails")

	if data.AddPrompt == "" || data.AddGuardrails == "" {
		data.AddError = "Prompt and guardrail text are required."
		return s.render(c, data)
	}

	created, err := s.api.AddGuardrail(ctx, data.AddPrompt, data.AddModel, data.AddGuardrails)
	if err != nil {
		s.logger.Warn("add guardrail failed", zap.Error(err))
		data.AddError = fmt.Sprintf("Failed to add guardrail: %v", err)
		return s.render(c, data)
	}

	data.AddResult = created
	data.AddPrompt = ""
	data.AddGuardrails = ""
	return s.render(c, data)
}

func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()
	data := s.newPageData(ctx)
	data.SearchPrompt = c.FormValue("prompt")
	data.SearchModel = c.FormValue("model_name")

	if limit, err := strconv.Atoi(c.FormValue("limit")); err == nil && limit > 0 {
		data.SearchLimit = limit
	}

	if data.SearchPrompt == "" {
		data.SearchError = "Prompt is required."
		return s.render(c, data)
	}

	results, err := s.api.SearchGuardrails(ctx, data.SearchPrompt, data.SearchModel, data.SearchLimit)
	if err != nil {
		s.logger.Warn("search guardrails failed", zap.Error(err))
		data.SearchError = fmt.Sprintf("Search failed: %v", err)
		return s.render(c, data)
	}

	data.SearchResult = results
	return s.render(c, data)
}

func (s *Server) newPageData(ctx context.Context) *pageData {
	return &pageData{
		Models:      s.api.Models(ctx),
		SearchLimit: 5,
	}
}

// render executes the page template into a buffer first, so a template
// failure surfaces as a 500 instead of a truncated 200 page.
func (s *Server) render(c echo.Context, data *pageData) error {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Start starts the UI server and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting web ui", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web ui")
	return s.echo.Shutdown(ctx)
}

// WaitForAPI polls the API health endpoint until it answers or the timeout
// elapses. The UI starts either way; this only avoids a burst of fallback
// model lists right after boot.
func (s *Server) WaitForAPI(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.api.baseURL+"/health", nil)
		if err != nil {
			return false
		}
		resp, err := s.api.http.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return false
}
