package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/guardraild/internal/httpapi"
)

// defaultModels is the fallback list rendered when the API is unreachable.
var defaultModels = []string{
	"gpt-4",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
	"claude-3-opus",
	"claude-3-sonnet",
	"claude-3-haiku",
}

// Client calls the guardraild HTTP API over the network.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Models fetches the configured model allow-list, falling back to a default
// list when the API is unreachable or returns nothing.
func (c *Client) Models(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return defaultModels
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return defaultModels
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return defaultModels
	}

	var models httpapi.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil || len(models.Models) == 0 {
		return defaultModels
	}
	return models.Models
}

// AddGuardrail creates a guardrail via POST /guardrails.
func (c *Client) AddGuardrail(ctx context.Context, prompt, modelName, guardrails string) (*httpapi.GuardrailCreatedResponse, error) {
	var created httpapi.GuardrailCreatedResponse
	err := c.postJSON(ctx, "/guardrails", httpapi.CreateGuardrailRequest{
		Prompt:     prompt,
		ModelName:  modelName,
		Guardrails: guardrails,
	}, http.StatusCreated, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SearchGuardrails runs a search via POST /guardrails/search.
func (c *Client) SearchGuardrails(ctx context.Context, prompt, modelName string, limit int) (*httpapi.SearchResponse, error) {
	var results httpapi.SearchResponse
	err := c.postJSON(ctx, "/guardrails/search", httpapi.SearchRequest{
		Prompt:    prompt,
		ModelName: modelName,
		Limit:     limit,
	}, http.StatusOK, &results)
	if err != nil {
		return nil, err
	}
	return &results, nil
}

// postJSON sends a JSON body and decodes the response into out, requiring the
// given success status.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, wantStatus int, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
