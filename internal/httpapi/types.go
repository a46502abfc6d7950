package httpapi

import "github.com/fyrsmithlabs/guardraild/internal/store"

// CreateGuardrailRequest is the request body for POST /guardrails.
type CreateGuardrailRequest struct {
	Prompt     string `json:"prompt"`
	ModelName  string `json:"model_name"`
	Guardrails string `json:"guardrails"`
}

// GuardrailCreatedResponse is the response body after creating a guardrail.
type GuardrailCreatedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SearchRequest is the request body for POST /guardrails/search.
type SearchRequest struct {
	Prompt    string `json:"prompt"`
	ModelName string `json:"model_name"`
	Limit     int    `json:"limit"`
}

// SearchResponse is the response body for POST /guardrails/search.
type SearchResponse struct {
	Results []store.Guardrail `json:"results"`
	Count   int               `json:"count"`
}

// ModelsResponse is the response body for GET /models.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	WeaviateConnected bool   `json:"weaviate_connected"`
}
