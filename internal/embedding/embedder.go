// Package embedding provides text embedding through a remote service, query caching,
// and a deterministic embedder for tests.
package embedding

import (
	"context"
	"errors"
)

// ErrAccessDenied is returned when the embedding service rejects the caller's
// credentials or permissions. It is fatal: callers must not retry.
var ErrAccessDenied = errors.New("embedding service access denied")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector size, or 0 if it is not known until the first call.
	Dimensions() int
	Close() error
}
