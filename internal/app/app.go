// Package app assembles the pipeline from configuration. Both the CLI
// and the API server build the same App and differ only in how they
// drive it.
package app

import (
	"context"
	"fmt"

	"github.com/drafthaus/cadindex/internal/cache"
	"github.com/drafthaus/cadindex/internal/canonical"
	"github.com/drafthaus/cadindex/internal/classify"
	"github.com/drafthaus/cadindex/internal/config"
	"github.com/drafthaus/cadindex/internal/convert"
	"github.com/drafthaus/cadindex/internal/embedding"
	"github.com/drafthaus/cadindex/internal/geometry"
	"github.com/drafthaus/cadindex/internal/ingest"
	"github.com/drafthaus/cadindex/internal/llm"
	"github.com/drafthaus/cadindex/internal/observability"
	"github.com/drafthaus/cadindex/internal/ocr"
	"github.com/drafthaus/cadindex/internal/pdftext"
	"github.com/drafthaus/cadindex/internal/search"
	"github.com/drafthaus/cadindex/internal/store"
)

// App holds the assembled pipeline.
type App struct {
	Cfg          *config.Config
	Logger       *observability.Logger
	Store        *store.Store
	Orchestrator *ingest.Orchestrator
	Search       *search.Service

	converter *convert.Converter
	cache     cache.Client
}

// New builds the full pipeline from configuration. The embedder falls
// back to the deterministic mock when no API key is configured, which
// keeps local experimentation working without network access.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "cadindex",
	})

	gen := llm.NewClient(llm.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})

	var embedder embedding.Embedder
	if cfg.Embedding.APIKey != "" {
		client, err := embedding.NewClient(embedding.Config{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding client: %w", err)
		}
		embedder = client
	} else {
		logger.Warn().Msg("No embedding API key configured, using local hash embedder")
		embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	var descCache cache.Client
	if cfg.Cache.Driver == "redis" {
		redisCache, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
			descCache = cache.NewMemoryClient()
		} else {
			descCache = redisCache
		}
	} else {
		descCache = cache.NewMemoryClient()
	}

	st, err := store.Open(ctx, cfg.Store.SQLitePath, embedder, logger)
	if err != nil {
		return nil, err
	}

	var converter *convert.Converter
	if cfg.Converter.Enabled {
		converter = convert.NewConverter(convert.Config{
			Path:    cfg.Converter.Path,
			Timeout: cfg.Converter.Timeout,
			Enabled: cfg.Converter.Enabled,
		}, logger)
	}

	ocrEngine := ocr.NewEngine(ocr.Config{
		Path:           cfg.OCR.TesseractPath,
		Enabled:        cfg.OCR.Enabled,
		DPI:            cfg.OCR.DPI,
		ScoreThreshold: cfg.OCR.ScoreThreshold,
	}, logger)

	textExtractor := pdftext.NewExtractor(logger, ocrEngine, cfg.OCR.MaxPages)
	classifier := classify.NewClassifier(classify.Config{
		VectorThreshold: cfg.Classify.VectorThreshold,
		Bias:            cfg.Classify.InclusionBias,
	}, gen, logger)
	canon := canonical.NewCanonicalizer(gen, descCache, logger)

	var orchConverter ingest.Converter
	if converter != nil {
		orchConverter = converter
	}

	orchestrator := ingest.NewOrchestrator(
		st,
		orchConverter,
		geometry.NewExtractor(logger),
		textExtractor,
		classifier,
		canon,
		logger,
	)

	return &App{
		Cfg:          cfg,
		Logger:       logger,
		Store:        st,
		Orchestrator: orchestrator,
		Search:       search.NewService(st, gen, logger),
		converter:    converter,
		cache:        descCache,
	}, nil
}

// Close releases the store, cache and converter scratch space.
func (a *App) Close() error {
	if a.converter != nil {
		if err := a.converter.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Converter cleanup failed")
		}
	}
	if err := a.cache.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Cache close failed")
	}
	return a.Store.Close()
}
