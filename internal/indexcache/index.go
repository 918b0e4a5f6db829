package indexcache

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hyperjump/ragbench/internal/embedding"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/storage"
	"github.com/hyperjump/ragbench/internal/vector"
)

// Index is a loaded, read-only similarity index. It is safe for concurrent use.
type Index struct {
	dir      string
	vectors  vector.VectorIndex
	store    storage.Storage
	embedder embedding.Embedder
	info     *storage.IndexInfo
}

// Open loads the artifacts in dir. embedder must produce vectors of the size the
// index was built with.
func Open(dir string, embedder embedding.Embedder) (*Index, error) {
	vecIdx, err := vector.LoadMemoryIndex(filepath.Join(dir, VectorFile))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	store, err := storage.OpenSQLiteStorage(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("open index metadata: %w", err)
	}
	info, err := store.Info(context.Background())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open index metadata: %w", err)
	}
	if info.Dimensions != vecIdx.Dimensions() {
		_ = store.Close()
		return nil, fmt.Errorf("open index: metadata says %d dimensions, vectors have %d", info.Dimensions, vecIdx.Dimensions())
	}
	return &Index{
		dir:      dir,
		vectors:  vecIdx,
		store:    store,
		embedder: embedder,
		info:     info,
	}, nil
}

// Retrieve returns up to k fragments most similar to query, best first.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]*models.Fragment, error) {
	q, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := i.vectors.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	ids := make([]string, len(hits))
	for n, h := range hits {
		ids[n] = h.ID
	}
	chunks, err := i.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	fragments := make([]*models.Fragment, 0, len(hits))
	for _, h := range hits {
		c, ok := chunks[h.ID]
		if !ok {
			return nil, fmt.Errorf("chunk %s missing from index metadata", h.ID)
		}
		fragments = append(fragments, &models.Fragment{
			ChunkID: c.ID,
			Source:  c.Source,
			Page:    c.Page,
			Content: c.Content,
			Score:   h.Score,
		})
	}
	return fragments, nil
}

// Dir returns the index directory.
func (i *Index) Dir() string { return i.dir }

// Size returns the number of indexed chunks.
func (i *Index) Size() int { return i.vectors.Size() }

// Info returns the build information stored with the index.
func (i *Index) Info() storage.IndexInfo { return *i.info }

// Sources returns the source file names present in the index.
func (i *Index) Sources(ctx context.Context) ([]string, error) {
	return i.store.Sources(ctx)
}

// Close releases the metadata database.
func (i *Index) Close() error {
	_ = i.vectors.Close()
	return i.store.Close()
}
