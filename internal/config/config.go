// Package config provides configuration loading and structs for the Enfance server.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/enfance/internal/datasets"
	"github.com/hyperjump/enfance/internal/generation"
	"github.com/hyperjump/enfance/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool                  `yaml:"debug"`
	Server     ServerConfig          `yaml:"server"`
	Corpus     CorpusConfig          `yaml:"corpus"`
	Embedding  EmbeddingConfig       `yaml:"embedding"`
	Ranking    ranking.RankingConfig `yaml:"ranking"`
	Lexicon    LexiconConfig         `yaml:"lexicon"`
	Datasets   DatasetsConfig        `yaml:"datasets"`
	Generation generation.Config     `yaml:"generation"`
	Cache      CacheConfig           `yaml:"cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the sustained number of API requests per second (default: 5).
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the number of requests allowed above the rate (default: 10).
	RateBurst int `yaml:"rate_burst"`
	// RequestTimeout bounds a whole API request (default: 60s).
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CorpusConfig holds the corpus sources.
type CorpusConfig struct {
	// MetadataPath is the corpus metadata JSON used when the store is empty.
	MetadataPath string `yaml:"metadata_path"`
	// DatabasePath is the SQLite segment store.
	DatabasePath string `yaml:"database_path"`
	// PagesBaseURL is the site root used to guess URLs of imported pages.
	PagesBaseURL string `yaml:"pages_base_url"`
}

// EmbeddingConfig holds the corpus matrix and the query embedding service.
type EmbeddingConfig struct {
	MatrixPath string `yaml:"matrix_path"`
	// Format is "npy", "matrix" or empty to detect it from the file.
	Format string `yaml:"format"`
	// BaseURL of the Ollama-compatible embedding service. Empty disables semantic search.
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
}

// LexiconConfig holds the lexicon file and the query hints appended on expansion.
type LexiconConfig struct {
	Path string `yaml:"path"`
	// QueryHints maps a normalized user term to extra query words. Unset uses the built-in hints.
	QueryHints map[string][]string `yaml:"query_hints,omitempty"`
}

// DatasetsConfig holds the structured dataset files. Each one is optional.
type DatasetsConfig struct {
	RPE     string `yaml:"rpe"`
	Places  string `yaml:"places"`
	Tariffs string `yaml:"tariffs"`
	Schools string `yaml:"schools"`
}

// Paths converts the config to the loader's form.
func (d DatasetsConfig) Paths() datasets.Paths {
	return datasets.Paths{RPE: d.RPE, Places: d.Places, Tariffs: d.Tariffs, Schools: d.Schools}
}

// CacheConfig holds the answer cache settings.
type CacheConfig struct {
	Enabled *bool         `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// EnabledOrDefault returns whether the answer cache is on; defaults to true when unset.
func (c *CacheConfig) EnabledOrDefault() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// A .env file next to the config is loaded into the environment when present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Ranking starts from its defaults so an explicit 0 switches a signal off.
	cfg := Config{Ranking: *ranking.DefaultRankingConfig()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if err := LoadEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	cfg.Corpus.MetadataPath = expandPath(cfg.Corpus.MetadataPath, configDir)
	cfg.Corpus.DatabasePath = expandPath(cfg.Corpus.DatabasePath, configDir)
	cfg.Embedding.MatrixPath = expandPath(cfg.Embedding.MatrixPath, configDir)
	cfg.Lexicon.Path = expandPath(cfg.Lexicon.Path, configDir)
	cfg.Datasets.RPE = expandPath(cfg.Datasets.RPE, configDir)
	cfg.Datasets.Places = expandPath(cfg.Datasets.Places, configDir)
	cfg.Datasets.Tariffs = expandPath(cfg.Datasets.Tariffs, configDir)
	cfg.Datasets.Schools = expandPath(cfg.Datasets.Schools, configDir)

	return &cfg, nil
}

// LoadEnv loads a dotenv file without overriding variables already set. A missing file is
// not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// APIKey returns the generation API key from the configured environment variable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Generation.APIKeyEnv))
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Write encodes the config as yaml to w.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths and ":memory:" are
// kept.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
