// Package config loads engine configuration from defaults, an optional
// YAML file, and environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	Development = "development"
	Production  = "production"
)

// Config is the full engine configuration.
type Config struct {
	Environment string          `yaml:"environment" validate:"oneof=development production"`
	Logging     LoggingConfig   `yaml:"logging"`
	LLM         LLMConfig       `yaml:"llm"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	Tunables    TunablesConfig  `yaml:"tunables" validate:"required"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// File enables size-based rotation to the given path when set.
	File string `yaml:"file"`
}

// LLMConfig configures the completion provider behind the extractor and
// the placement oracle.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// UseMock swaps in the deterministic mock provider; no API key needed.
	UseMock bool `yaml:"use_mock"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension" validate:"gt=0"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// TunablesConfig holds the runtime-tunable engine parameters. These can
// be hot-reloaded through the Watcher.
type TunablesConfig struct {
	ClusterThreshold   float64 `yaml:"cluster_threshold" validate:"gt=0,lte=1"`
	PlacementThreshold float64 `yaml:"placement_threshold" validate:"gt=0,lte=1"`
	TopK               int     `yaml:"top_k" validate:"gt=0"`
	ContextChunks      int     `yaml:"context_chunks" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Logging: LoggingConfig{
			Level: "info",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 384,
			CacheTTL:  1 * time.Hour,
		},
		Tunables: TunablesConfig{
			ClusterThreshold:   0.65,
			PlacementThreshold: 0.75,
			TopK:               5,
			ContextChunks:      5,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides, then
// validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto the configuration.
func (c *Config) applyEnv() {
	setString(&c.Environment, "IDEAGRAPH_ENV")
	setString(&c.Logging.Level, "IDEAGRAPH_LOG_LEVEL")
	setString(&c.Logging.File, "IDEAGRAPH_LOG_FILE")

	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.APIKey, "IDEAGRAPH_LLM_API_KEY")
	setString(&c.LLM.BaseURL, "IDEAGRAPH_LLM_BASE_URL")
	setString(&c.LLM.Model, "IDEAGRAPH_LLM_MODEL")
	setBool(&c.LLM.UseMock, "IDEAGRAPH_LLM_USE_MOCK")

	setString(&c.Embedding.Model, "IDEAGRAPH_EMBED_MODEL")
	setInt(&c.Embedding.Dimension, "IDEAGRAPH_EMBED_DIMENSION")

	setFloat(&c.Tunables.ClusterThreshold, "IDEAGRAPH_CLUSTER_THRESHOLD")
	setFloat(&c.Tunables.PlacementThreshold, "IDEAGRAPH_PLACEMENT_THRESHOLD")
	setInt(&c.Tunables.TopK, "IDEAGRAPH_TOP_K")
	setInt(&c.Tunables.ContextChunks, "IDEAGRAPH_CONTEXT_CHUNKS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
