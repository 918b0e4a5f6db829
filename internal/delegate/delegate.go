// Package delegate runs the pipeline for the option-code driver, either in the same
// process or as a child process.
package delegate

import (
	"context"

	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/internal/pipeline"
)

// Delegate produces the answer text for resolved parameters.
type Delegate interface {
	Invoke(ctx context.Context, p options.Params) (string, error)
}

// Answerer is satisfied by *pipeline.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, index pipeline.Retriever, modelID, templateText, query string) (*models.Answer, error)
}

// InProcess calls the pipeline directly against an already resolved index.
type InProcess struct {
	answerer Answerer
	index    pipeline.Retriever
}

// NewInProcess returns a Delegate that answers with a against index.
func NewInProcess(a Answerer, index pipeline.Retriever) *InProcess {
	return &InProcess{answerer: a, index: index}
}

// Invoke implements Delegate.
func (d *InProcess) Invoke(ctx context.Context, p options.Params) (string, error) {
	ans, err := d.answerer.Answer(ctx, d.index, p.ModelID, p.PromptTemplate, p.Query)
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}
