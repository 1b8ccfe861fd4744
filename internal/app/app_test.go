package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/llm"
)

type MockEmbedder struct{ Vector []float32 }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.Vector, nil
}

func sqliteConfig() *config.Config {
	cfg := config.Default()
	cfg.Store = config.StoreConfig{Driver: "sqlite", DSN: ":memory:", Migrate: true}
	cfg.Search.DefaultLevel = "strict"
	cfg.Search.MaxResults = 5
	return cfg
}

func TestNewWithClients(t *testing.T) {
	ctx := context.Background()
	a, err := NewWithClients(ctx, sqliteConfig(), nil, &MockEmbedder{Vector: []float32{1, 0}}, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 5, a.Detector.MaxResults)
	assert.Equal(t, model.LevelStrict, a.Detector.DefaultLevel)
	assert.False(t, a.Detector.Gateway.Configured())

	require.NoError(t, a.Catalog.Upsert(ctx, []model.CatalogItem{
		{ID: 1, Code: "A", Description: "Laptop", Category: "Computers", Active: true, Embedding: []float32{1, 0}},
		{ID: 2, Code: "B", Description: "Notebook", Category: "Computers", Active: true, Embedding: []float32{0.99, 0.14}},
	}))

	result, err := a.Detector.SearchByRange(ctx, model.RangeSearch{
		Options: model.Options{Threshold: 0.9},
		FromID:  1,
		ToID:    2,
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	assert.Len(t, result.Groups[0].Items, 2)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\ndriver = \"sqlite\"\ndsn = \"catalog.db\"\n"), 0o600))
	t.Setenv("LLM_PROVIDER", "ollama")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")

	_, err := LoadConfig("")

	assert.ErrorContains(t, err, "store.dsn is required")
}

func TestRetryConfig(t *testing.T) {
	rc := retryConfig(config.ValidationConfig{
		MaxRetries:     4,
		RatePerSecond:  0.5,
		InitialBackoff: config.Duration{Duration: 2 * time.Second},
	})

	assert.Equal(t, 4, rc.MaxRetries)
	assert.Equal(t, 0.5, rc.RatePerSecond)
	assert.Equal(t, 2*time.Second, rc.InitialBackoff)
	assert.Equal(t, llm.DefaultRetryConfig().MaxBackoff, rc.MaxBackoff)
}
