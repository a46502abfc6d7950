// Package store is the single point of contact with the Weaviate vector
// database. It owns the connection lifecycle, the schema bootstrap for the
// Guardrail collection, and the four operations the rest of the system needs:
// add, hybrid search, fetch by id, and delete by id.
//
// Embedding generation and hybrid ranking happen inside Weaviate; this package
// only builds requests and maps responses.
package store

import "context"

// CollectionName is the Weaviate class holding guardrail records.
const CollectionName = "Guardrail"

// fetchScore is the sentinel relevance attached to point lookups, where no
// query was scored.
const fetchScore = 1.0

// Guardrail is a stored guardrail record. Score is derived and ephemeral: it
// is populated from hybrid search relevance, or the sentinel 1.0 on fetch by
// id, and is never persisted.
type Guardrail struct {
	ID         string  `json:"id"`
	Prompt     string  `json:"prompt"`
	ModelName  string  `json:"model_name"`
	Guardrails string  `json:"guardrails"`
	Score      float64 `json:"score"`
}

// Store is the interface for guardrail storage operations.
//
// Implementations reuse one shared connection per process; concurrency safety
// is delegated to the underlying client. No operation is retried.
type Store interface {
	// Connect establishes the connection and ensures the Guardrail collection
	// exists. The schema bootstrap is idempotent.
	Connect(ctx context.Context) error

	// Close releases the connection. Safe to call when not connected.
	Close() error

	// Ready reports whether the store is reachable.
	Ready(ctx context.Context) bool

	// Add writes a new guardrail with a freshly generated id and returns it.
	Add(ctx context.Context, prompt, modelName, guardrails string) (string, error)

	// Search runs a hybrid (keyword + vector) query over prompt text,
	// strictly filtered to records whose model name equals modelName,
	// truncated to limit and ordered by descending combined score. Alpha in
	// [0,1] blends keyword (0) against vector (1) scoring. A query matching
	// nothing returns an empty slice, not an error.
	Search(ctx context.Context, prompt, modelName string, limit int, alpha float64) ([]Guardrail, error)

	// Get fetches a guardrail by id. Absence is not an error: it returns
	// (nil, nil). The returned record carries the sentinel score 1.0.
	Get(ctx context.Context, id string) (*Guardrail, error)

	// Delete removes a guardrail by id. It returns (true, nil) when a record
	// was removed, (false, nil) when no such id existed, and (false, err)
	// only on communication failure. Callers decide whether to collapse the
	// last two.
	Delete(ctx context.Context, id string) (bool, error)
}
