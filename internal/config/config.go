// Package config provides configuration loading for guardraild.
//
// Configuration is merged from three layers with increasing precedence:
// built-in defaults, an optional YAML file, and environment variables with
// the GUARDRAILD_ prefix.
package config

import (
	"fmt"
)

// Config holds the complete guardraild configuration.
//
// The value is constructed once at startup by Load and passed to every
// component explicitly. It is never mutated after load.
type Config struct {
	// Models is the allow-list of LLM model names. When non-empty, guardrail
	// creation rejects model names outside the list. Empty means any model
	// name is accepted.
	Models []string `koanf:"models"`

	Weaviate WeaviateConfig `koanf:"weaviate"`
	API      APIConfig      `koanf:"api"`
	UI       UIConfig       `koanf:"ui"`
	Search   SearchConfig   `koanf:"search"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// WeaviateConfig holds Weaviate connection configuration.
type WeaviateConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	GRPCPort int    `koanf:"grpc_port"`
}

// APIConfig holds HTTP API server configuration.
type APIConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// UIConfig holds the browser UI server configuration.
type UIConfig struct {
	Port int `koanf:"port"`
}

// SearchConfig holds hybrid search defaults.
type SearchConfig struct {
	// DefaultLimit is the result count used when a request does not specify one.
	DefaultLimit int `koanf:"default_limit"`

	// Alpha balances keyword (0) against vector (1) scoring in hybrid search.
	Alpha float64 `koanf:"alpha"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// defaults is the lowest-precedence configuration layer. Loaded into koanf
// before the file and environment layers so that an explicit zero (for
// example search.alpha: 0, pure keyword search) is kept, not mistaken for an
// unset field.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"weaviate.host":        "localhost",
		"weaviate.port":        8080,
		"weaviate.grpc_port":   50051,
		"api.host":             "0.0.0.0",
		"api.port":             8000,
		"ui.port":              8501,
		"search.default_limit": 5,
		"search.alpha":         0.5,
		"logging.level":        "info",
		"logging.format":       "json",
	}
}

// Validate checks configuration for invalid values.
func (c *Config) Validate() error {
	if c.Weaviate.Port < 1 || c.Weaviate.Port > 65535 {
		return fmt.Errorf("invalid weaviate port: %d", c.Weaviate.Port)
	}
	if c.Weaviate.GRPCPort < 1 || c.Weaviate.GRPCPort > 65535 {
		return fmt.Errorf("invalid weaviate grpc port: %d", c.Weaviate.GRPCPort)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d", c.API.Port)
	}
	if c.UI.Port < 1 || c.UI.Port > 65535 {
		return fmt.Errorf("invalid ui port: %d", c.UI.Port)
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search default_limit must be at least 1, got %d", c.Search.DefaultLimit)
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("search alpha must be in [0,1], got %v", c.Search.Alpha)
	}
	return nil
}
