// Package storage persists chunk texts and index build information next to the
// vector file.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/ragbench/internal/models"
)

// Storage defines chunk and build-info persistence operations.
type Storage interface {
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error)
	CountChunks(ctx context.Context) (int64, error)
	Sources(ctx context.Context) ([]string, error)

	PutInfo(ctx context.Context, info *IndexInfo) error
	Info(ctx context.Context) (*IndexInfo, error)

	Close() error
}

// IndexInfo describes how an index was built.
type IndexInfo struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Chunks         int       `json:"chunks"`
	Documents      int       `json:"documents"`
	BuiltAt        time.Time `json:"built_at"`
}
