// Package indexer turns loaded documents into the two index artifacts: the vector
// file and the chunk metadata database.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/storage"
	"github.com/hyperjump/ragbench/internal/vector"
	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoChunks is returned when the documents contain no text to index.
var ErrNoChunks = errors.New("no chunks to index")

// Indexer builds index artifacts from documents.
type Indexer struct {
	embedder       embedding.Embedder
	splitter       *Splitter
	embeddingModel string
	logger         *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress and the access probe sample.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithEmbeddingModel records the embedding model name in the build info.
func WithEmbeddingModel(name string) IndexerOption {
	return func(idx *Indexer) { idx.embeddingModel = name }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(embedder embedding.Embedder, splitter *Splitter, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder: embedder,
		splitter: splitter,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// Build splits docs, embeds every chunk, and writes the vector index to vectorPath and
// the chunk metadata to metaPath. The first chunk is embedded alone before the rest as
// an access probe; an authorization failure there stops the build with
// embedding.ErrAccessDenied before any other embedding call.
func (idx *Indexer) Build(ctx context.Context, docs []*models.Document, vectorPath, metaPath string) (*storage.IndexInfo, error) {
	start := time.Now()
	chunks, err := idx.splitter.Split(docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	idx.logger.Info("documents split", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))

	probe, err := idx.embedder.Embed(ctx, chunks[0].Content)
	if err != nil {
		return nil, fmt.Errorf("embedding access probe: %w", err)
	}
	idx.logger.Debug("embedding access probe",
		zap.String("sample_chunk", utils.Truncate(chunks[0].Content, 200)),
		zap.Float32s("sample_embedding_head", head(probe, 5)),
		zap.Int("dimensions", len(probe)),
	)

	vectors := make([][]float32, len(chunks))
	vectors[0] = probe
	if len(chunks) > 1 {
		texts := make([]string, len(chunks)-1)
		for i, c := range chunks[1:] {
			texts[i] = c.Content
		}
		rest, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		copy(vectors[1:], rest)
	}

	vecIdx, err := vector.NewMemoryIndex(len(probe))
	if err != nil {
		return nil, err
	}
	defer vecIdx.Close()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := vecIdx.Add(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := vecIdx.Save(vectorPath); err != nil {
		return nil, fmt.Errorf("failed to save vector index: %w", err)
	}

	store, err := storage.NewSQLiteStorage(metaPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	info := &storage.IndexInfo{
		EmbeddingModel: idx.embeddingModel,
		Dimensions:     len(probe),
		ChunkSize:      idx.splitter.chunkSize,
		ChunkOverlap:   idx.splitter.chunkOverlap,
		Chunks:         len(chunks),
		Documents:      len(docs),
	}
	if err := store.PutInfo(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to store index info: %w", err)
	}
	if err := store.Close(); err != nil {
		return nil, fmt.Errorf("failed to close metadata: %w", err)
	}

	idx.logger.Info("index built",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", len(probe)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return info, nil
}

func head(v []float32, n int) []float32 {
	if len(v) < n {
		return v
	}
	return v[:n]
}
