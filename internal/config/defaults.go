package config

import (
	"time"

	"github.com/hyperjump/enfance/internal/ranking"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8711
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 5
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 10
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Corpus.MetadataPath == "" {
		cfg.Corpus.MetadataPath = "/usr/local/var/enfance/data/corpus_metadata.json"
	}
	if cfg.Corpus.DatabasePath == "" {
		cfg.Corpus.DatabasePath = "/usr/local/var/enfance/data/segments.db"
	}
	if cfg.Corpus.PagesBaseURL == "" {
		cfg.Corpus.PagesBaseURL = "https://www.amiens.fr/"
	}
	if cfg.Embedding.MatrixPath == "" {
		cfg.Embedding.MatrixPath = "/usr/local/var/enfance/data/corpus_embeddings.npy"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10 * time.Second
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Ranking.Unset() {
		cfg.Ranking = *ranking.DefaultRankingConfig()
	}
	cfg.Ranking.ApplyDefaults()
	if cfg.Lexicon.Path == "" {
		cfg.Lexicon.Path = "/usr/local/var/enfance/data/lexique_enfance.json"
	}
	cfg.Generation.ApplyDefaults()
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
}
