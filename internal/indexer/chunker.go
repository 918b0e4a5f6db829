package indexer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter splits page text into overlapping chunks, preferring paragraph, then line,
// then word boundaries. Size and overlap are measured in characters.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// NewSplitter creates a splitter with the given size and overlap.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// Split turns documents into chunks, keeping each chunk's source and page.
// Pages with no text produce no chunks.
func (s *Splitter) Split(docs []*models.Document) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	for _, doc := range docs {
		text := Preprocess(doc.Content)
		if text == "" {
			continue
		}
		parts, err := s.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", doc.ID, err)
		}
		for i, part := range parts {
			chunks = append(chunks, &models.Chunk{
				ID:         fmt.Sprintf("%s_%s", doc.ID, uuid.New().String()[:8]),
				DocumentID: doc.ID,
				Source:     doc.Source,
				Page:       doc.Page,
				ChunkIndex: i,
				Content:    part,
			})
		}
	}
	return chunks, nil
}
