// Package generation sends rendered prompts to hosted LLMs.
package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrAccessDenied is returned when the LLM provider rejects the credentials or the
// account lacks access to the requested model.
var ErrAccessDenied = errors.New("generation service access denied")

// Generator produces a completion for prompt using the model identified by modelID.
type Generator interface {
	Generate(ctx context.Context, modelID, prompt string) (string, error)
}

// Settings are the sampling settings shared by every provider.
type Settings struct {
	MaxTokens   int
	Temperature float64
}

// Router dispatches to a provider by model ID: IDs starting with "gemini" go to the
// Gemini generator, everything else to the Anthropic generator.
type Router struct {
	anthropic Generator
	gemini    Generator
}

// NewRouter returns a Router over the two providers. Either may be nil, in which case
// models routed to it fail.
func NewRouter(anthropic, gemini Generator) *Router {
	return &Router{anthropic: anthropic, gemini: gemini}
}

// Generate implements Generator.
func (r *Router) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	if modelID == "" {
		return "", errors.New("model id is required")
	}
	g, provider := r.anthropic, "anthropic"
	if IsGemini(modelID) {
		g, provider = r.gemini, "gemini"
	}
	if g == nil {
		return "", fmt.Errorf("no %s generator configured for model %q", provider, modelID)
	}
	return g.Generate(ctx, modelID, prompt)
}

// IsGemini reports whether modelID names a Gemini model.
func IsGemini(modelID string) bool {
	return strings.HasPrefix(strings.ToLower(modelID), "gemini")
}

// classify wraps provider errors that indicate an authorization failure with
// ErrAccessDenied.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"401", "403", "unauthorized", "forbidden", "permission_denied",
		"permission denied", "authentication_error", "permission_error",
		"accessdenied", "api key not valid", "invalid x-api-key",
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%s: %w: %v", provider, ErrAccessDenied, err)
		}
	}
	return fmt.Errorf("%s: %w", provider, err)
}

func apiKey(env string) (string, error) {
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", env)
	}
	return key, nil
}
