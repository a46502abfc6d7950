package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/grpc"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guardraild/internal/config"
)

// vectorizer is the Weaviate module that embeds guardrail prompts.
const vectorizer = "text2vec-transformers"

// WeaviateStore implements Store against a Weaviate instance.
//
// One instance is constructed per process and shared by the HTTP and MCP
// layers. The connection is established by Connect, or lazily on first use.
type WeaviateStore struct {
	cfg    config.WeaviateConfig
	logger *zap.Logger
	client *weaviate.Client

	// bootstrapped is set once ensureCollection has succeeded. Until then
	// every operation re-runs Connect, so a store that came up while
	// Weaviate was down creates the collection on the first operation after
	// Weaviate recovers instead of letting auto-schema define it.
	bootstrapped bool
}

var _ Store = (*WeaviateStore)(nil)

// NewWeaviateStore creates a store for the configured Weaviate instance.
// It does not connect; call Connect, or let the first operation do it.
func NewWeaviateStore(cfg config.WeaviateConfig, logger *zap.Logger) *WeaviateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeaviateStore{
		cfg:    cfg,
		logger: logger,
	}
}

// Connect establishes the client connection and ensures the Guardrail
// collection exists. Calling Connect on a connected store re-runs only the
// idempotent schema bootstrap.
func (s *WeaviateStore) Connect(ctx context.Context) error {
	if s.client == nil {
		client, err := weaviate.NewClient(weaviate.Config{
			Host:   fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
			Scheme: "http",
			GrpcConfig: &grpc.Config{
				Host: fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.GRPCPort),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create weaviate client: %w", err)
		}
		s.client = client
	}

	if err := s.ensureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", CollectionName, err)
	}
	s.bootstrapped = true

	s.logger.Info("connected to weaviate",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.Int("grpc_port", s.cfg.GRPCPort),
		zap.String("collection", CollectionName))

	return nil
}

// Close releases the connection. Safe to call when not connected.
func (s *WeaviateStore) Close() error {
	s.client = nil
	s.bootstrapped = false
	return nil
}

// Ready reports whether the Weaviate instance answers its readiness probe.
func (s *WeaviateStore) Ready(ctx context.Context) bool {
	if err := s.conn(ctx); err != nil {
		return false
	}
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	return err == nil && ready
}

// Add writes a new guardrail with a client-generated UUID and returns the id.
func (s *WeaviateStore) Add(ctx context.Context, prompt, modelName, guardrails string) (string, error) {
	if err := s.conn(ctx); err != nil {
		return "", err
	}

	id := uuid.NewString()

	_, err := s.client.Data().Creator().
		WithClassName(CollectionName).
		WithID(id).
		WithProperties(map[string]interface{}{
			"prompt":     prompt,
			"model_name": modelName,
			"guardrails": guardrails,
		}).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert guardrail: %w", err)
	}

	s.logger.Debug("guardrail created",
		zap.String("id", id),
		zap.String("model_name", modelName))

	return id, nil
}

// Search runs a hybrid query filtered strictly by model name.
func (s *WeaviateStore) Search(ctx context.Context, prompt, modelName string, limit int, alpha float64) ([]Guardrail, error) {
	if err := s.conn(ctx); err != nil {
		return nil, err
	}

	hybrid := s.client.GraphQL().HybridArgumentBuilder().
		WithQuery(prompt).
		WithAlpha(float32(alpha))

	where := filters.Where().
		WithPath([]string{"model_name"}).
		WithOperator(filters.Equal).
		WithValueText(modelName)

	resp, err := s.client.GraphQL().Get().
		WithClassName(CollectionName).
		WithHybrid(hybrid).
		WithWhere(where).
		WithLimit(limit).
		WithFields(
			graphql.Field{Name: "prompt"},
			graphql.Field{Name: "model_name"},
			graphql.Field{Name: "guardrails"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "id"},
				{Name: "score"},
			}},
		).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	return parseSearchResponse(resp)
}

// Get fetches a guardrail by id. Returns (nil, nil) when the id does not
// exist; the record carries the sentinel score 1.0.
func (s *WeaviateStore) Get(ctx context.Context, id string) (*Guardrail, error) {
	if err := s.conn(ctx); err != nil {
		return nil, err
	}

	objects, err := s.client.Data().ObjectsGetter().
		WithClassName(CollectionName).
		WithID(id).
		Do(ctx)
	if err != nil {
		if isStatusCode(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch guardrail %s: %w", id, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	props, ok := objects[0].Properties.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected properties type %T for guardrail %s", objects[0].Properties, id)
	}

	return &Guardrail{
		ID:         objects[0].ID.String(),
		Prompt:     stringProp(props, "prompt"),
		ModelName:  stringProp(props, "model_name"),
		Guardrails: stringProp(props, "guardrails"),
		Score:      fetchScore,
	}, nil
}

// Delete removes a guardrail by id. A missing id yields (false, nil);
// communication failures yield (false, err).
func (s *WeaviateStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.conn(ctx); err != nil {
		return false, err
	}

	err := s.client.Data().Deleter().
		WithClassName(CollectionName).
		WithID(id).
		Do(ctx)
	if err != nil {
		if isStatusCode(err, http.StatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete guardrail %s: %w", id, err)
	}
	return true, nil
}

// conn connects lazily on first use and keeps retrying Connect until the
// schema bootstrap has succeeded once.
func (s *WeaviateStore) conn(ctx context.Context) error {
	if s.client != nil && s.bootstrapped {
		return nil
	}
	return s.Connect(ctx)
}

// ensureCollection creates the Guardrail class on first run. Existing
// collections are left untouched.
func (s *WeaviateStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(CollectionName).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check class existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.Schema().ClassCreator().
		WithClass(collectionClass()).
		Do(ctx); err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}

	s.logger.Info("created weaviate collection", zap.String("collection", CollectionName))
	return nil
}

// collectionClass describes the Guardrail schema: prompt is embedded for
// semantic search, model_name is stored but excluded from vectorization so it
// acts purely as an equality filter.
func collectionClass() *models.Class {
	return &models.Class{
		Class:      CollectionName,
		Vectorizer: vectorizer,
		Properties: []*models.Property{
			{
				Name:        "prompt",
				DataType:    []string{"text"},
				Description: "The prompt or question pattern this guardrail applies to",
			},
			{
				Name:        "model_name",
				DataType:    []string{"text"},
				Description: "The LLM model this guardrail is for",
				ModuleConfig: map[string]interface{}{
					vectorizer: map[string]interface{}{
						"skip": true,
					},
				},
			},
			{
				Name:        "guardrails",
				DataType:    []string{"text"},
				Description: "The guardrail text to add to prompts",
			},
		},
	}
}

// parseSearchResponse maps a GraphQL hybrid response onto guardrail records.
func parseSearchResponse(resp *models.GraphQLResponse) ([]Guardrail, error) {
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql query failed: %s", resp.Errors[0].Message)
	}

	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []Guardrail{}, nil
	}
	objects, ok := get[CollectionName].([]interface{})
	if !ok {
		return []Guardrail{}, nil
	}

	results := make([]Guardrail, 0, len(objects))
	for _, raw := range objects {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		g := Guardrail{
			Prompt:     stringProp(obj, "prompt"),
			ModelName:  stringProp(obj, "model_name"),
			Guardrails: stringProp(obj, "guardrails"),
		}

		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			g.ID = stringProp(additional, "id")
			g.Score = parseScore(additional["score"])
		}

		results = append(results, g)
	}
	return results, nil
}

// parseScore converts the _additional.score value, which Weaviate returns as
// a string, into a float. Unparseable values degrade to 0.
func parseScore(v interface{}) float64 {
	switch score := v.(type) {
	case string:
		f, err := strconv.ParseFloat(score, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return score
	case json.Number:
		f, err := score.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func stringProp(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

// isStatusCode reports whether err is a Weaviate client error with the given
// HTTP status.
func isStatusCode(err error, code int) bool {
	var clientErr *fault.WeaviateClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == code
}
