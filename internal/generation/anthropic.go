package generation

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// AnthropicGenerator calls Claude models through langchaingo.
type AnthropicGenerator struct {
	keyEnv   string
	settings Settings
}

// NewAnthropicGenerator reads the API key from keyEnv on each call, so a missing key
// only fails requests that route to Anthropic.
func NewAnthropicGenerator(keyEnv string, settings Settings) *AnthropicGenerator {
	return &AnthropicGenerator{keyEnv: keyEnv, settings: settings}
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	key, err := apiKey(g.keyEnv)
	if err != nil {
		return "", err
	}
	llm, err := anthropic.New(anthropic.WithToken(key), anthropic.WithModel(modelID))
	if err != nil {
		return "", classify("anthropic", err)
	}
	opts := []llms.CallOption{llms.WithTemperature(g.settings.Temperature)}
	if g.settings.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.settings.MaxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt, opts...)
	if err != nil {
		return "", classify("anthropic", err)
	}
	return out, nil
}
