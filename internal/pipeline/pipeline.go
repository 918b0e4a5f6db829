// Package pipeline answers questions by retrieving indexed fragments and handing them,
// rendered into a prompt template, to a generation model.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/ragbench/internal/generation"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/prompt"
	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTopK is the number of fragments retrieved per question.
const DefaultTopK = 3

// fragmentSeparator joins retrieved fragments into the context slot.
const fragmentSeparator = "\n\n"

// Retriever returns the k fragments most similar to query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]*models.Fragment, error)
}

// Pipeline is stateless between calls; the index is supplied per request.
type Pipeline struct {
	generator    generation.Generator
	topK         int
	defaultModel string
	logger       *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(modelID string) Option {
	return func(p *Pipeline) { p.defaultModel = modelID }
}

// New creates a Pipeline that generates with g.
func New(g generation.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{generator: g, topK: DefaultTopK}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// TopK returns the number of fragments retrieved per question.
func (p *Pipeline) TopK() int { return p.topK }

// Answer retrieves the top-k fragments for query from index, renders templateText with
// them and query, and returns the model's output verbatim with the fragments attached.
// Empty arguments fall back to the default model, prompt.Default and prompt.DefaultQuery.
// The template is checked before any retrieval, so a template missing a slot fails
// with prompt.ErrMissingSlot without touching the index or the model.
// Generation errors are returned unretried.
func (p *Pipeline) Answer(ctx context.Context, index Retriever, modelID, templateText, query string) (*models.Answer, error) {
	if modelID == "" {
		modelID = p.defaultModel
	}
	if modelID == "" {
		return nil, errors.New("model id is required")
	}
	if templateText == "" {
		templateText = prompt.Default
	}
	if query == "" {
		query = prompt.DefaultQuery
	}
	tmpl, err := prompt.Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("prompt template: %w", err)
	}
	if index == nil {
		return nil, errors.New("no index loaded")
	}

	start := time.Now()
	fragments, err := index.Retrieve(ctx, query, p.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	rendered, err := tmpl.Render(JoinFragments(fragments), query)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	p.logger.Debug("generating answer",
		zap.String("model", modelID),
		zap.Int("fragments", len(fragments)),
		zap.Int("prompt_chars", len(rendered)),
		zap.Duration("retrieve", time.Since(start)))

	text, err := p.generator.Generate(ctx, modelID, rendered)
	if err != nil {
		return nil, err
	}
	p.logger.Info("answered",
		zap.String("model", modelID),
		zap.Duration("elapsed", time.Since(start)))
	return &models.Answer{
		Text:    text,
		ModelID: modelID,
		Query:   query,
		Sources: fragments,
	}, nil
}

// JoinFragments concatenates fragment contents in retrieval order.
func JoinFragments(fragments []*models.Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, fragmentSeparator)
}
