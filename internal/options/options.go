// Package options translates the prompt-testing harness's positional option codes into
// concrete pipeline parameters.
package options

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/ragbench/internal/prompt"
)

// LLMOption is a symbolic model choice.
type LLMOption string

// PromptOption is a symbolic prompt template choice.
type PromptOption string

const (
	LLMOptionOne   LLMOption = "llm_option_one"
	LLMOptionTwo   LLMOption = "llm_option_two"
	LLMOptionThree LLMOption = "llm_option_three"

	PromptOptionOne   PromptOption = "prompt_option_one"
	PromptOptionTwo   PromptOption = "prompt_option_two"
	PromptOptionThree PromptOption = "prompt_option_three"
)

// LLMOptions lists the LLM codes in order.
var LLMOptions = []LLMOption{LLMOptionOne, LLMOptionTwo, LLMOptionThree}

// PromptOptions lists the prompt codes in order.
var PromptOptions = []PromptOption{PromptOptionOne, PromptOptionTwo, PromptOptionThree}

// Usage is the one-line synopsis printed with every usage error.
const Usage = "Usage: ragdriver <llm_option> <prompt_option> <query>"

// Params are the concrete values the pipeline understands.
type Params struct {
	ModelID        string
	PromptTemplate string
	Query          string
}

// UsageError reports bad arguments. Callers print it and exit with status 1.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	if e.Reason == "" {
		return Usage
	}
	return Usage + "\n" + e.Reason
}

// IsUsageError reports whether err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// Table maps every option code to its value.
type Table struct {
	llms    map[LLMOption]string
	prompts map[PromptOption]prompt.Template
}

// NewTable builds the lookup table from three model IDs and three prompt templates,
// given in code order. Every template is validated here, so a bad template is reported
// when the table is built rather than when a request renders it.
func NewTable(llms, prompts []string) (*Table, error) {
	if len(llms) != len(LLMOptions) {
		return nil, fmt.Errorf("need %d llm options, got %d", len(LLMOptions), len(llms))
	}
	if len(prompts) != len(PromptOptions) {
		return nil, fmt.Errorf("need %d prompt options, got %d", len(PromptOptions), len(prompts))
	}
	t := &Table{
		llms:    make(map[LLMOption]string, len(LLMOptions)),
		prompts: make(map[PromptOption]prompt.Template, len(PromptOptions)),
	}
	for i, code := range LLMOptions {
		if strings.TrimSpace(llms[i]) == "" {
			return nil, fmt.Errorf("%s: empty model id", code)
		}
		t.llms[code] = llms[i]
	}
	for i, code := range PromptOptions {
		tmpl, err := prompt.Parse(prompts[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", code, err)
		}
		t.prompts[code] = tmpl
	}
	return t, nil
}

// Model returns the model ID behind code.
func (t *Table) Model(code LLMOption) (string, bool) {
	m, ok := t.llms[code]
	return m, ok
}

// Prompt returns the template behind code.
func (t *Table) Prompt(code PromptOption) (prompt.Template, bool) {
	p, ok := t.prompts[code]
	return p, ok
}

// Lookup resolves a pair of option codes.
func (t *Table) Lookup(llm, promptCode string) (Params, error) {
	modelID, ok := t.Model(LLMOption(llm))
	if !ok {
		return Params{}, &UsageError{Reason: fmt.Sprintf("Usage: <llm_option> must be one of %v", LLMOptions)}
	}
	tmpl, ok := t.Prompt(PromptOption(promptCode))
	if !ok {
		return Params{}, &UsageError{Reason: fmt.Sprintf("Usage: <prompt_option> must be one of %v", PromptOptions)}
	}
	return Params{ModelID: modelID, PromptTemplate: tmpl.Text()}, nil
}

// Resolve validates the raw argument vector (program name first) and maps it to Params.
// The query is passed through unvalidated; extra trailing arguments are ignored.
func (t *Table) Resolve(args []string) (Params, error) {
	if len(args) < 4 {
		return Params{}, &UsageError{}
	}
	p, err := t.Lookup(args[1], args[2])
	if err != nil {
		return Params{}, err
	}
	p.Query = args[3]
	return p, nil
}
