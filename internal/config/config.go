// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Keys are flat, lower-case and match the koanf tags below.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration for the review server, the suggest
// service and the admin CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the review API listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabasePath is the sqlite file holding events, people and applications.
	DatabasePath string `koanf:"database_path"`

	// SearchProvider selects the scoring backend: "http" or "memory".
	SearchProvider string `koanf:"search_provider"`
	// SearchURL is the base URL of the semantic search service.
	SearchURL string `koanf:"search_url"`
	// SearchTimeout bounds a single scoring call.
	SearchTimeout time.Duration `koanf:"search_timeout"`
	// SearchRatePerSec and SearchBurst configure the client-side limiter.
	SearchRatePerSec float64 `koanf:"search_rate_per_sec"`
	SearchBurst      int     `koanf:"search_burst"`

	// EnforceTerminalStates makes confirmed and rejected final at the write boundary.
	EnforceTerminalStates bool `koanf:"enforce_terminal_states"`

	// SessionTTL expires review and editor sessions idle for longer.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// DedupeSize bounds the in-flight submission guard.
	DedupeSize int `koanf:"dedupe_size"`

	// SuggestAddr is the listen address of the suggest service.
	SuggestAddr string `koanf:"suggest_addr"`
	// IndexPath is the sqlite file holding profile vectors.
	IndexPath string `koanf:"index_path"`
	// OllamaURL is the embedding backend used by the suggest service.
	OllamaURL string `koanf:"ollama_url"`
	// EmbedModel names the embedding model.
	EmbedModel string `koanf:"embed_model"`
	// TopK caps the number of suggestions returned per query.
	TopK int `koanf:"top_k"`
	// IndexWorkers and IndexQueueSize size the profile embedding pipeline.
	IndexWorkers   int `koanf:"index_workers"`
	IndexQueueSize int `koanf:"index_queue_size"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		DatabasePath:          "data/admit.db",
		SearchProvider:        "http",
		SearchURL:             "http://localhost:9090",
		SearchTimeout:         15 * time.Second,
		SearchRatePerSec:      5,
		SearchBurst:           5,
		EnforceTerminalStates: true,
		SessionTTL:            2 * time.Hour,
		DedupeSize:            10_000,
		SuggestAddr:           ":9090",
		IndexPath:             "data/suggest.db",
		OllamaURL:             "http://localhost:11434",
		EmbedModel:            "multilingual-e5-large",
		TopK:                  10_000,
		IndexWorkers:          runtime.NumCPU(),
		IndexQueueSize:        1_000,
	}
}

// Validate checks the values Load cannot fix on its own.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DatabasePath) == "":
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case c.SearchProvider != "http" && c.SearchProvider != "memory":
		return fmt.Errorf("%w: search_provider must be http or memory, got %q", ErrInvalidConfig, c.SearchProvider)
	case c.SearchProvider == "http" && strings.TrimSpace(c.SearchURL) == "":
		return fmt.Errorf("%w: search_url is required for the http provider", ErrInvalidConfig)
	case c.SearchTimeout <= 0:
		return fmt.Errorf("%w: search_timeout must be positive", ErrInvalidConfig)
	case c.SearchRatePerSec <= 0 || c.SearchBurst < 1:
		return fmt.Errorf("%w: search rate and burst must be positive", ErrInvalidConfig)
	case c.TopK < 1:
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	return nil
}
