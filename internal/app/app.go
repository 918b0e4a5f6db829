// Package app wires configuration into the components shared by the ragpipeline and
// ragdriver commands. Nothing is loaded or fetched until a method asks for it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hyperjump/ragbench/internal/config"
	"github.com/hyperjump/ragbench/internal/corpus"
	"github.com/hyperjump/ragbench/internal/delegate"
	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/extract"
	"github.com/hyperjump/ragbench/internal/generation"
	"github.com/hyperjump/ragbench/internal/indexcache"
	"github.com/hyperjump/ragbench/internal/indexer"
	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/internal/pipeline"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultConfigPath is used when --config is not given. A missing file means defaults.
const DefaultConfigPath = "./ragbench.yaml"

// LoadConfig loads .env from the working directory, if present, and then the config
// at path.
func LoadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return config.Load(path)
}

// Components are the long-lived parts built from a config.
type Components struct {
	Config   *config.Config
	Logger   *zap.Logger
	Embedder embedding.Embedder
	Cache    *indexcache.Cache
	Pipeline *pipeline.Pipeline
	Options  *options.Table
}

// New builds the components. It makes no network calls and touches no files.
func New(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	table, err := options.NewTable(cfg.Options.LLMs, cfg.Options.Prompts)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	httpEmbedder, err := embedding.NewHTTPEmbedder(embedding.HTTPConfig{
		BaseURL:           cfg.Embedding.BaseURL,
		APIKeyEnv:         cfg.Embedding.APIKeyEnv,
		Model:             cfg.Embedding.Model,
		Timeout:           cfg.Embedding.Timeout(),
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	}, embedding.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	var emb embedding.Embedder = httpEmbedder
	if cfg.Embedding.CacheSize > 0 {
		emb = embedding.NewCachedEmbedder(httpEmbedder, cfg.Embedding.CacheSize)
	}

	fetcher := corpus.NewFetcher(cfg.Corpus.URLs, cfg.Corpus.FetchTimeout(), corpus.WithFetchLogger(logger))
	loader := corpus.NewLoader(extract.NewExtractor(), corpus.WithLoaderLogger(logger))
	builder := indexer.NewIndexer(emb,
		indexer.NewSplitter(cfg.Chunking.Size, cfg.Chunking.OverlapChars()),
		indexer.WithLogger(logger),
		indexer.WithEmbeddingModel(cfg.Embedding.Model),
	)
	cache := indexcache.New(fetcher, loader, builder, emb, indexcache.WithLogger(logger))

	settings := generation.Settings{
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
	}
	router := generation.NewRouter(
		generation.NewAnthropicGenerator(cfg.Generation.AnthropicKeyEnv, settings),
		generation.NewGeminiGenerator(cfg.Generation.GeminiKeyEnv, settings),
	)
	p := pipeline.New(router,
		pipeline.WithTopK(cfg.Retrieval.TopK),
		pipeline.WithDefaultModel(cfg.Generation.DefaultModel),
		pipeline.WithLogger(logger),
	)

	return &Components{
		Config:   cfg,
		Logger:   logger,
		Embedder: emb,
		Cache:    cache,
		Pipeline: p,
		Options:  table,
	}, nil
}

// ResolveIndex returns the cached index, building it first if needed.
func (c *Components) ResolveIndex(ctx context.Context) (*indexcache.Index, error) {
	return c.Cache.Resolve(ctx, c.Config.Index.Dir, c.Config.Corpus.Dir)
}

// RebuildIndex rebuilds the index unconditionally.
func (c *Components) RebuildIndex(ctx context.Context) (*indexcache.Index, error) {
	return c.Cache.Rebuild(ctx, c.Config.Index.Dir, c.Config.Corpus.Dir)
}

// Delegate returns the delegate selected by delegate.mode. In-process mode resolves the
// index first; the returned close function releases it. In exec mode the child is
// pointed at the same config file, so it resolves the same index and defaults.
func (c *Components) Delegate(ctx context.Context) (delegate.Delegate, func() error, error) {
	switch c.Config.Delegate.Mode {
	case config.DelegateExec:
		opts := []delegate.ExecOption{delegate.WithLogger(c.Logger)}
		if c.Config.Path != "" {
			opts = append(opts, delegate.WithArgs("--config", c.Config.Path))
		}
		return delegate.NewExec(c.Config.Delegate.Command, opts...), func() error { return nil }, nil
	default:
		idx, err := c.ResolveIndex(ctx)
		if err != nil {
			return nil, nil, err
		}
		return delegate.NewInProcess(c.Pipeline, idx), idx.Close, nil
	}
}

// Close releases the embedder.
func (c *Components) Close() error {
	if c.Embedder == nil {
		return nil
	}
	return c.Embedder.Close()
}

// ExitCode maps a command error to the process exit status: 2 for authorization
// failures, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, embedding.ErrAccessDenied), errors.Is(err, generation.ErrAccessDenied):
		return 2
	default:
		return 1
	}
}
