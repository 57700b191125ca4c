// Package file provides TOML-backed configuration loading.
// Configuration lives in a single file within the quarry config
// directory, ~/.quarry/config.toml by default.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default file locations, relative to the user's home directory.
const (
	DefaultConfigDirName = ".quarry"
	configFileName       = "config.toml"
)

// Config is the full application configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Generator GeneratorConfig `toml:"generator"`
	Search    SearchConfig    `toml:"search"`
	Notion    NotionConfig    `toml:"notion"`
}

// StorageConfig controls where documents and the index are persisted.
type StorageConfig struct {
	// DataDir holds the document database, vector blob and manifest.
	// Defaults to <configDir>/data.
	DataDir string `toml:"data_dir"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// APIKey authenticates hosted providers. Ignored by ollama.
	APIKey string `toml:"api_key"`

	// Dimensions is the embedding vector size. Zero uses the
	// provider's default for the model.
	Dimensions int `toml:"dimensions"`
}

// GeneratorConfig selects and configures the answer generation backend.
type GeneratorConfig struct {
	// Provider is "ollama", "openai", "anthropic" or "" (disabled).
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the generation model name.
	Model string `toml:"model"`

	// APIKey authenticates hosted providers. Ignored by ollama.
	APIKey string `toml:"api_key"`

	// MaxTokens caps the generated answer length. Zero uses the
	// provider default.
	MaxTokens int `toml:"max_tokens"`
}

// SearchConfig tunes retrieval behaviour.
type SearchConfig struct {
	// Metric is the index similarity metric, "ip" or "l2". Fixed for
	// the lifetime of an index; changing it requires a rebuild from
	// an empty data directory.
	Metric string `toml:"metric"`

	// DefaultK is the result count used when a command does not
	// specify one.
	DefaultK int `toml:"default_k"`

	// ContextBudget caps the grounding text passed to the generator,
	// in bytes.
	ContextBudget int `toml:"context_budget"`
}

// NotionConfig configures the Notion connector.
type NotionConfig struct {
	// Token is the Notion integration token.
	Token string `toml:"token"`

	// RequestsPerSecond throttles Notion API calls (default 3, the
	// documented integration limit).
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// DefaultConfigDir returns ~/.quarry, creating nothing.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDirName), nil
}

// defaults fills unset fields in place.
func (c *Config) defaults(configDir string) {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = filepath.Join(configDir, "data")
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Search.Metric == "" {
		c.Search.Metric = "ip"
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 5
	}
	if c.Search.ContextBudget <= 0 {
		c.Search.ContextBudget = 2000
	}
	if c.Notion.RequestsPerSecond <= 0 {
		c.Notion.RequestsPerSecond = 3
	}
}

// Load reads the config file from configDir, applying defaults for
// anything unset. A missing file yields a pure-default Config. Empty
// configDir means ~/.quarry. The directory is created so that later
// saves and data files have a home.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	cfg := &Config{}
	path := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run, defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.defaults(configDir)
	return cfg, nil
}

// Save writes the config back to configDir with owner-only permissions,
// since it may hold API keys.
func Save(configDir string, cfg *Config) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	path := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
