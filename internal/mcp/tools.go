package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Tool arguments are declared optional in the schema on purpose: presence of
// required fields is validated inside the handlers so that a missing argument
// produces a readable text message instead of a protocol-level fault.

type addGuardrailInput struct {
	Prompt     string `json:"prompt,omitempty" jsonschema:"The prompt pattern or question type this guardrail applies to"`
	ModelName  string `json:"model_name,omitempty" jsonschema:"The LLM model this guardrail is for"`
	Guardrails string `json:"guardrails,omitempty" jsonschema:"The guardrail text to add to prompts matching this pattern"`
}

type searchGuardrailsInput struct {
	Prompt    string `json:"prompt,omitempty" jsonschema:"The prompt to search for relevant guardrails"`
	ModelName string `json:"model_name,omitempty" jsonschema:"Filter results by LLM model"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of guardrails to return (default: 5)"`
}

// searchSummary is the JSON document rendered into the search tool's text
// block.
type searchSummary struct {
	Count   int                  `json:"count"`
	Model   string               `json:"model"`
	Results []searchSummaryEntry `json:"results"`
}

type searchSummaryEntry struct {
	Rank           int     `json:"rank"`
	Score          float64 `json:"score"`
	Guardrails     string  `json:"guardrails"`
	OriginalPrompt string  `json:"original_prompt"`
}

// registerTools registers add_guardrail and search_guardrails.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "add_guardrail",
		Description: "Add a new guardrail to the guardrails database. Guardrails are textual " +
			"instructions that help prevent LLM hallucinations for specific types of prompts. " +
			"Required: prompt, model_name, guardrails. Available models: " + s.modelsDescription() + ".",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addGuardrailInput) (*mcp.CallToolResult, any, error) {
		return s.handleAddGuardrail(ctx, args), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search_guardrails",
		Description: "Search for relevant guardrails using hybrid search (keyword + semantic). " +
			"Returns guardrails that are most relevant to the given prompt and model. " +
			"Required: prompt, model_name. Available models: " + s.modelsDescription() + ".",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchGuardrailsInput) (*mcp.CallToolResult, any, error) {
		return s.handleSearchGuardrails(ctx, args), nil, nil
	})
}

// handleAddGuardrail validates arguments, re-checks the model allow-list and
// writes the guardrail. Every outcome is a text block.
func (s *Server) handleAddGuardrail(ctx context.Context, args addGuardrailInput) *mcp.CallToolResult {
	if args.Prompt == "" || args.ModelName == "" || args.Guardrails == "" {
		return textResult("Missing required arguments: prompt, model_name, guardrails")
	}

	if len(s.cfg.Models) > 0 && !s.modelAllowed(args.ModelName) {
		return textResult(fmt.Sprintf("Invalid model name '%s'. Available models: %s",
			args.ModelName, s.modelsDescription()))
	}

	id, err := s.store.Add(ctx, args.Prompt, args.ModelName, args.Guardrails)
	if err != nil {
		s.logger.Error("add_guardrail failed", zap.Error(err))
		return textResult(fmt.Sprintf("Error creating guardrail: %v", err))
	}

	return textResult(fmt.Sprintf("Successfully created guardrail with ID: %s", id))
}

// handleSearchGuardrails validates arguments and renders the ranked matches
// as an indented JSON summary in a single text block.
func (s *Server) handleSearchGuardrails(ctx context.Context, args searchGuardrailsInput) *mcp.CallToolResult {
	if args.Prompt == "" || args.ModelName == "" {
		return textResult("Missing required arguments: prompt, model_name")
	}

	limit := args.Limit
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}

	results, err := s.store.Search(ctx, args.Prompt, args.ModelName, limit, s.cfg.Search.Alpha)
	if err != nil {
		s.logger.Error("search_guardrails failed", zap.Error(err))
		return textResult(fmt.Sprintf("Error searching guardrails: %v", err))
	}

	if len(results) == 0 {
		return textResult(fmt.Sprintf(
			"No guardrails found for model '%s' matching the given prompt.", args.ModelName))
	}

	summary := searchSummary{
		Count:   len(results),
		Model:   args.ModelName,
		Results: make([]searchSummaryEntry, 0, len(results)),
	}
	for i, r := range results {
		summary.Results = append(summary.Results, searchSummaryEntry{
			Rank:           i + 1,
			Score:          roundScore(r.Score),
			Guardrails:     r.Guardrails,
			OriginalPrompt: r.Prompt,
		})
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return textResult(fmt.Sprintf("Error formatting results: %v", err))
	}
	return textResult(string(out))
}

// roundScore trims relevance scores to 4 decimals for readable output.
func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
