// Package indexcache decides whether the persisted similarity index can be reused and
// rebuilds it from the source corpus when it cannot.
//
// An index directory is valid when it holds both artifacts, VectorFile and MetaFile.
// A rebuild never touches the live directory until it has fully succeeded: artifacts
// are written to a sibling temporary directory which then replaces the old one.
// Concurrent rebuilds of the same directory from separate processes are not coordinated.
package indexcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hyperjump/ragbench/internal/corpus"
	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/storage"
	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// Artifact file names inside an index directory.
const (
	VectorFile = "index.vec"
	MetaFile   = "index.meta"
)

// Fetcher populates an empty or invalid corpus directory.
type Fetcher interface {
	Fetch(ctx context.Context, dir string) error
}

// Loader reads the corpus into per-page documents.
type Loader interface {
	Load(dir string) ([]*models.Document, error)
}

// Builder writes both index artifacts from documents.
type Builder interface {
	Build(ctx context.Context, docs []*models.Document, vectorPath, metaPath string) (*storage.IndexInfo, error)
}

// Valid reports whether dir exists, is a directory, and contains both artifact files.
func Valid(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, name := range []string{VectorFile, MetaFile} {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !fi.Mode().IsRegular() {
			return false
		}
	}
	return true
}

// Cache resolves index directories.
type Cache struct {
	fetcher  Fetcher
	loader   Loader
	builder  Builder
	embedder embedding.Embedder
	logger   *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets a logger for cache hits, misses and rebuild steps.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a Cache. embedder is attached to resolved indexes for query embedding.
func New(fetcher Fetcher, loader Loader, builder Builder, embedder embedding.Embedder, opts ...Option) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		loader:   loader,
		builder:  builder,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// Resolve returns the index in indexDir, rebuilding it from corpusDir if indexDir is
// not valid. On a hit the corpus is not inspected and nothing is embedded.
func (c *Cache) Resolve(ctx context.Context, indexDir, corpusDir string) (*Index, error) {
	if Valid(indexDir) {
		c.logger.Info("loading cached index", zap.String("dir", indexDir))
		return Open(indexDir, c.embedder)
	}
	c.logger.Info("no valid cached index, rebuilding", zap.String("dir", indexDir))
	return c.Rebuild(ctx, indexDir, corpusDir)
}

// Rebuild builds a fresh index from corpusDir and swaps it into indexDir, fetching the
// corpus first if corpusDir is not valid.
func (c *Cache) Rebuild(ctx context.Context, indexDir, corpusDir string) (*Index, error) {
	if !corpus.Valid(corpusDir) {
		c.logger.Info("source corpus missing, fetching", zap.String("dir", corpusDir))
		if err := c.fetcher.Fetch(ctx, corpusDir); err != nil {
			return nil, fmt.Errorf("fetch corpus: %w", err)
		}
		if !corpus.Valid(corpusDir) {
			return nil, fmt.Errorf("corpus %s has no PDF files after fetch", corpusDir)
		}
	}
	docs, err := c.loader.Load(corpusDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	c.logger.Info("corpus loaded", zap.Int("pages", len(docs)))

	parent := filepath.Dir(indexDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("create index parent dir: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(indexDir)+".build-")
	if err != nil {
		return nil, fmt.Errorf("create build dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if _, err := c.builder.Build(ctx, docs, filepath.Join(tmp, VectorFile), filepath.Join(tmp, MetaFile)); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if !Valid(tmp) {
		return nil, fmt.Errorf("build index: artifacts missing in %s", tmp)
	}
	if err := swap(tmp, indexDir); err != nil {
		return nil, err
	}
	return Open(indexDir, c.embedder)
}

// swap replaces dst with src. An existing dst is moved aside first and removed only
// after src is in place.
func swap(src, dst string) error {
	var old string
	if _, err := os.Lstat(dst); err == nil {
		old = filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old-"+uuid.New().String()[:8])
		if err := os.Rename(dst, old); err != nil {
			return fmt.Errorf("move old index aside: %w", err)
		}
	}
	if err := os.Rename(src, dst); err != nil {
		if old != "" {
			_ = os.Rename(old, dst)
		}
		return fmt.Errorf("install new index: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}
