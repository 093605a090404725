package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the OpenAI-compatible embeddings endpoint.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size" validate:"gte=0"`
}

// GeneratorConfig configures the Ollama generation service.
type GeneratorConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// QdrantConfig contains connection details for the Qdrant store backend.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port" validate:"gte=0,lte=65535"`
	Collection string `yaml:"collection"`
}

// StoreConfig selects and configures the chunk store backend.
type StoreConfig struct {
	Type         string        `yaml:"type" validate:"oneof=memory qdrant"`
	SnapshotPath string        `yaml:"snapshot_path"`
	Qdrant       *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes the retrieve/rerank pipeline.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k" validate:"gte=0"`
	RerankTopN    int     `yaml:"rerank_top_n" validate:"gte=0"`
	MinSimilarity float64 `yaml:"min_similarity" validate:"gte=-1,lte=1"`
	HistoryWindow int     `yaml:"history_window" validate:"gte=0"`
}

// ChunkingConfig tunes the ingestion chunker.
type ChunkingConfig struct {
	Size    int `yaml:"size" validate:"gte=0"`
	Overlap int `yaml:"overlap" validate:"gte=0"`
}

// Config is the root application configuration.
type Config struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
}

// Load reads a config from the given path. A missing file returns defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, defaults are written to the user path and returned.
func LoadDefault() (*Config, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration for a stock local setup: Ollama on
// localhost for both embeddings and generation, in-memory store snapshotted
// to the working directory.
func Default() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			BaseURL:     "http://localhost:11434/v1",
			Model:       "all-minilm",
			TimeoutSecs: 30,
			BatchSize:   32,
		},
		Generator: GeneratorConfig{
			Host:        "http://localhost:11434",
			Model:       "llama3.2",
			TimeoutSecs: 120,
		},
		Store: StoreConfig{
			Type:         "memory",
			SnapshotPath: "embeddings.json",
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			RerankTopN:    3,
			MinSimilarity: 0.1,
			HistoryWindow: 4,
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 100,
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = def.Embedder.BaseURL
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = def.Embedder.TimeoutSecs
	}
	if cfg.Generator.Host == "" {
		cfg.Generator.Host = def.Generator.Host
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = def.Generator.Model
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = def.Generator.TimeoutSecs
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Type == "memory" && cfg.Store.SnapshotPath == "" {
		cfg.Store.SnapshotPath = def.Store.SnapshotPath
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.RerankTopN == 0 {
		cfg.Retrieval.RerankTopN = def.Retrieval.RerankTopN
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = def.Retrieval.MinSimilarity
	}
	if cfg.Retrieval.HistoryWindow == 0 {
		cfg.Retrieval.HistoryWindow = def.Retrieval.HistoryWindow
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = def.Chunking.Size
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = def.Chunking.Overlap
	}
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}
