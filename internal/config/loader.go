package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "GUARDRAILD_"

// configPathEnv names an explicit config file path, bypassing the search list.
const configPathEnv = "GUARDRAILD_CONFIG_PATH"

// Load loads configuration from YAML file, then overrides with environment
// variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GUARDRAILD_WEAVIATE_HOST, GUARDRAILD_API_PORT, ...)
//  2. YAML config file (first existing path in the search list, or the file
//     named by GUARDRAILD_CONFIG_PATH)
//  3. Hardcoded defaults
//
// A missing config file is not an error; defaults apply silently. A malformed
// file is a fatal error surfaced to the caller.
//
// Environment variables map to YAML keys by stripping the prefix, lowercasing,
// and splitting on the first underscore:
//
//	GUARDRAILD_WEAVIATE_GRPC_PORT -> weaviate.grpc_port
//	GUARDRAILD_SEARCH_DEFAULT_LIMIT -> search.default_limit
func Load() (*Config, error) {
	return LoadWithFile(os.Getenv(configPathEnv))
}

// LoadWithFile loads configuration, reading the YAML layer from configPath.
// If configPath is empty, the first existing file in the default search list
// is used.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		configPath = findConfigFile()
	}

	// A missing file is not an error; defaults and env vars still apply.
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// findConfigFile returns the first existing file among the candidate paths,
// or empty when none exists.
func findConfigFile() string {
	candidates := []string{
		filepath.Join("config", "config.yaml"),
		"config.yaml",
		filepath.Join("/etc", "guardraild", "config.yaml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "guardraild", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// transformEnvKey maps an environment variable name to a koanf key.
//
// The prefix is stripped, the rest lowercased, and the first underscore
// becomes the section separator. Underscores inside field names are kept:
//
//	GUARDRAILD_WEAVIATE_GRPC_PORT -> weaviate.grpc_port
//	GUARDRAILD_MODELS -> models
func transformEnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)

	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
