package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/fyrsmithlabs/guardraild/internal/config"
)

func TestCollectionClass(t *testing.T) {
	class := collectionClass()

	assert.Equal(t, "Guardrail", class.Class)
	assert.Equal(t, vectorizer, class.Vectorizer)
	require.Len(t, class.Properties, 3)

	byName := map[string]*models.Property{}
	for _, p := range class.Properties {
		byName[p.Name] = p
		assert.Equal(t, []string{"text"}, p.DataType)
	}

	require.Contains(t, byName, "prompt")
	require.Contains(t, byName, "model_name")
	require.Contains(t, byName, "guardrails")

	// model_name must be excluded from embedding so it acts as a strict
	// filter, never a similarity signal.
	moduleCfg, ok := byName["model_name"].ModuleConfig.(map[string]interface{})
	require.True(t, ok, "model_name should carry module config")
	vecCfg, ok := moduleCfg[vectorizer].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, vecCfg["skip"])

	assert.Nil(t, byName["prompt"].ModuleConfig)
}

func TestParseSearchResponse(t *testing.T) {
	t.Run("maps objects with scores", func(t *testing.T) {
		resp := graphQLResponse([]interface{}{
			searchObject("id-1", "capital of France", "gpt-4", "Verify facts.", "0.87"),
			searchObject("id-2", "capital cities", "gpt-4", "Cite sources.", "0.42"),
		})

		results, err := parseSearchResponse(resp)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "id-1", results[0].ID)
		assert.Equal(t, "capital of France", results[0].Prompt)
		assert.Equal(t, "gpt-4", results[0].ModelName)
		assert.Equal(t, "Verify facts.", results[0].Guardrails)
		assert.InDelta(t, 0.87, results[0].Score, 1e-9)
		assert.InDelta(t, 0.42, results[1].Score, 1e-9)
	})

	t.Run("empty result set is not an error", func(t *testing.T) {
		results, err := parseSearchResponse(graphQLResponse([]interface{}{}))
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.NotNil(t, results)
	})

	t.Run("missing Get section yields empty results", func(t *testing.T) {
		results, err := parseSearchResponse(&models.GraphQLResponse{
			Data: map[string]models.JSONObject{},
		})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("graphql errors surface", func(t *testing.T) {
		resp := &models.GraphQLResponse{
			Errors: []*models.GraphQLError{{Message: "no such class"}},
		}
		_, err := parseSearchResponse(resp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such class")
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want float64
	}{
		{"string score", "0.75", 0.75},
		{"float score", 0.33, 0.33},
		{"json number", json.Number("0.5"), 0.5},
		{"garbage string", "n/a", 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, parseScore(tt.in), 1e-9)
		})
	}
}

func TestIsStatusCode(t *testing.T) {
	notFound := &fault.WeaviateClientError{StatusCode: http.StatusNotFound, Msg: "not found"}
	serverErr := &fault.WeaviateClientError{StatusCode: http.StatusInternalServerError, Msg: "boom"}

	assert.True(t, isStatusCode(notFound, http.StatusNotFound))
	assert.False(t, isStatusCode(serverErr, http.StatusNotFound))
	assert.False(t, isStatusCode(errors.New("plain error"), http.StatusNotFound))
	assert.True(t, isStatusCode(fmt.Errorf("wrapped: %w", notFound), http.StatusNotFound))
}

func TestWeaviateStoreClose(t *testing.T) {
	s := NewWeaviateStore(weaviateTestConfig(), nil)

	// Close before any connect must be safe.
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestWeaviateStoreRetriesBootstrapAfterFailedConnect(t *testing.T) {
	// Nothing listens on port 1, so Connect fails during the schema
	// bootstrap. Later operations must keep retrying the full Connect
	// instead of treating the store as connected.
	s := NewWeaviateStore(config.WeaviateConfig{Host: "127.0.0.1", Port: 1, GRPCPort: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.Error(t, s.Connect(ctx))
	assert.NotNil(t, s.client)
	assert.False(t, s.bootstrapped)

	// conn must not short-circuit on the assigned client.
	require.Error(t, s.conn(ctx))
}

func weaviateTestConfig() config.WeaviateConfig {
	return config.WeaviateConfig{Host: "localhost", Port: 8080, GRPCPort: 50051}
}

func graphQLResponse(objects []interface{}) *models.GraphQLResponse {
	return &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				CollectionName: objects,
			},
		},
	}
}

func searchObject(id, prompt, modelName, guardrails, score string) map[string]interface{} {
	return map[string]interface{}{
		"prompt":     prompt,
		"model_name": modelName,
		"guardrails": guardrails,
		"_additional": map[string]interface{}{
			"id":    id,
			"score": score,
		},
	}
}
