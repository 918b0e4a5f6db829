// Package vector provides the similarity index over chunk embeddings.
package vector

import "context"

// VectorIndex stores vectors by ID and answers top-k similarity queries.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single search hit. ID is the chunk ID.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}
