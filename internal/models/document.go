// Package models defines core data structures for documents, chunks, and answers.
package models

// Document is the text of one page of a source file.
type Document struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Content string `json:"content"`
}

// Chunk is a piece of a Document small enough to embed.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Page       int       `json:"page"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// Fragment is a retrieved chunk with its similarity to the query.
type Fragment struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
