package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
generator:
  model: mistral
retrieval:
  top_k: 10
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Generator.Model)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	// untouched fields fall back to defaults
	assert.Equal(t, "http://localhost:11434", cfg.Generator.Host)
	assert.Equal(t, 3, cfg.Retrieval.RerankTopN)
	assert.InDelta(t, 0.1, cfg.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, 4, cfg.Retrieval.HistoryWindow)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "embeddings.json", cfg.Store.SnapshotPath)
}

func TestLoad_RejectsUnknownStoreType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: redis\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Generator.Model = "llama3.2:70b"
	cfg.Store.Type = "qdrant"
	cfg.Store.Qdrant = &QdrantConfig{Host: "localhost", Port: 6334, Collection: "docs"}

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Generator.Model, loaded.Generator.Model)
	assert.Equal(t, "qdrant", loaded.Store.Type)
	require.NotNil(t, loaded.Store.Qdrant)
	assert.Equal(t, "docs", loaded.Store.Qdrant.Collection)
}

func TestDefault_MatchesStockLocalSetup(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, "llama3.2", cfg.Generator.Model)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Retrieval.RerankTopN)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
}
