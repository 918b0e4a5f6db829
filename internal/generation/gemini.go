package generation

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator calls Gemini models through the Gen AI SDK.
type GeminiGenerator struct {
	keyEnv   string
	settings Settings
}

// NewGeminiGenerator reads the API key from keyEnv on each call.
func NewGeminiGenerator(keyEnv string, settings Settings) *GeminiGenerator {
	return &GeminiGenerator{keyEnv: keyEnv, settings: settings}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	key, err := apiKey(g.keyEnv)
	if err != nil {
		return "", err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", classify("gemini", err)
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.settings.Temperature)),
	}
	if g.settings.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.settings.MaxTokens)
	}
	result, err := client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify("gemini", err)
	}
	return responseText(result)
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
