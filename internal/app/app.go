// Package app wires configuration into a ready Detector and catalog.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/core/validation"
	"github.com/agenthands/catalog-dedupe/internal/llm"
	"github.com/agenthands/catalog-dedupe/internal/store"
)

type App struct {
	Config   *config.Config
	Catalog  store.Catalog
	Embedder llm.EmbedderClient
	Detector *core.Detector
	Logger   zerolog.Logger
}

// LoadConfig reads path when it is not empty, then applies environment
// overrides and validates the result.
func LoadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// New connects the catalog and the LLM provider. The judge is wrapped in the
// retrying transport; a missing provider key leaves judge and embedder unset.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	judge, embedder, err := llm.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return NewWithClients(ctx, cfg, judge, embedder, logger)
}

// NewWithClients is New with the LLM clients supplied by the caller.
func NewWithClients(ctx context.Context, cfg *config.Config, judge llm.LLMClient, embedder llm.EmbedderClient, logger zerolog.Logger) (*App, error) {
	catalog, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	var transport llm.LLMClient
	if judge != nil {
		transport = llm.NewRetryClient(judge, retryConfig(cfg.Validation), logger)
	}
	gateway := validation.NewGateway(transport, cfg.Validation, logger)

	detector := core.NewDetector(catalog, embedder, gateway, logger)
	detector.MaxResults = cfg.Search.MaxResults
	level, err := model.ParseLevel(cfg.Search.DefaultLevel)
	if err != nil {
		catalog.Close()
		return nil, err
	}
	detector.DefaultLevel = level

	logger.Info().
		Str("store", cfg.Store.Driver).
		Str("llm_provider", cfg.LLM.Provider).
		Bool("judge", gateway.Configured()).
		Bool("embedder", embedder != nil).
		Msg("duplicate detector ready")

	return &App{
		Config:   cfg,
		Catalog:  catalog,
		Embedder: embedder,
		Detector: detector,
		Logger:   logger,
	}, nil
}

func (a *App) Close() error {
	return a.Catalog.Close()
}

func retryConfig(v config.ValidationConfig) llm.RetryConfig {
	rc := llm.DefaultRetryConfig()
	rc.MaxRetries = v.MaxRetries
	rc.RatePerSecond = v.RatePerSecond
	if v.InitialBackoff.Duration > 0 {
		rc.InitialBackoff = v.InitialBackoff.Duration
	}
	if v.MaxBackoff.Duration > 0 {
		rc.MaxBackoff = v.MaxBackoff.Duration
	}
	if v.Timeout.Duration > 0 {
		rc.Timeout = v.Timeout.Duration
	}
	return rc
}
