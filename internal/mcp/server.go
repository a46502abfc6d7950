// Package mcp exposes guardrail storage to AI agents over the Model Context
// Protocol.
//
// Two tools are offered: add_guardrail and search_guardrails. Every outcome,
// including missing arguments, rejected model names and store failures, is
// returned as a text block inside a normal tool result rather than a
// protocol-level fault, so the calling agent's control flow stays simple.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guardraild/internal/config"
	"github.com/fyrsmithlabs/guardraild/internal/store"
)

// Server is the guardraild MCP tool server.
type Server struct {
	mcp    *mcp.Server
	store  store.Store
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.Config, st store.Store, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "guardraild",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:    mcpServer,
		store:  st,
		cfg:    cfg,
		logger: logger,
	}

	s.registerTools()

	return s, nil
}

// Run serves MCP over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting mcp server on stdio")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// modelsDescription names the configured models in tool descriptions so the
// agent knows what model_name values are accepted.
func (s *Server) modelsDescription() string {
	if len(s.cfg.Models) == 0 {
		return "any model name"
	}
	return strings.Join(s.cfg.Models, ", ")
}

func (s *Server) modelAllowed(name string) bool {
	for _, m := range s.cfg.Models {
		if m == name {
			return true
		}
	}
	return false
}

// textResult wraps a message as the single text block of a successful tool
// result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
