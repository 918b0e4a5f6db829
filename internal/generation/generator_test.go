package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type recordingGenerator struct {
	name   string
	models []string
}

func (r *recordingGenerator) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	r.models = append(r.models, modelID)
	return r.name + ":" + prompt, nil
}

func TestRouter_Generate(t *testing.T) {
	claude := &recordingGenerator{name: "anthropic"}
	gemini := &recordingGenerator{name: "gemini"}
	r := NewRouter(claude, gemini)
	ctx := context.Background()

	out, err := r.Generate(ctx, "claude-3-5-haiku-20241022", "p")
	require.NoError(t, err)
	assert.Equal(t, "anthropic:p", out)

	out, err = r.Generate(ctx, "gemini-2.5-flash", "p")
	require.NoError(t, err)
	assert.Equal(t, "gemini:p", out)

	assert.Equal(t, []string{"claude-3-5-haiku-20241022"}, claude.models)
	assert.Equal(t, []string{"gemini-2.5-flash"}, gemini.models)

	_, err = r.Generate(ctx, "", "p")
	assert.Error(t, err)
}

func TestRouter_missingProvider(t *testing.T) {
	r := NewRouter(&recordingGenerator{name: "anthropic"}, nil)
	_, err := r.Generate(context.Background(), "Gemini-Pro", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		denied bool
	}{
		{errors.New("API returned unexpected status code: 401: authentication_error"), true},
		{errors.New("rpc error: code = PermissionDenied desc = PERMISSION_DENIED"), true},
		{errors.New("Error 400, Message: API key not valid. Please pass a valid API key."), true},
		{errors.New("AccessDeniedException: no model access"), true},
		{errors.New("API returned unexpected status code: 529: overloaded_error"), false},
		{errors.New("context deadline exceeded"), false},
	}
	for _, tt := range tests {
		err := classify("p", tt.err)
		assert.Equal(t, tt.denied, errors.Is(err, ErrAccessDenied), tt.err.Error())
		assert.ErrorContains(t, err, tt.err.Error())
	}
	assert.NoError(t, classify("p", nil))
}

func TestGenerators_requireKeys(t *testing.T) {
	t.Setenv("RAGBENCH_TEST_MISSING_KEY", "")
	ctx := context.Background()

	_, err := NewAnthropicGenerator("RAGBENCH_TEST_MISSING_KEY", Settings{}).Generate(ctx, "claude-3-5-haiku-20241022", "p")
	assert.ErrorContains(t, err, "RAGBENCH_TEST_MISSING_KEY")

	_, err = NewGeminiGenerator("RAGBENCH_TEST_MISSING_KEY", Settings{}).Generate(ctx, "gemini-2.5-flash", "p")
	assert.ErrorContains(t, err, "RAGBENCH_TEST_MISSING_KEY")
}

func TestResponseText(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	out, err := responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "You may face "}, {Text: "penalties."}}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "You may face penalties.", out)
}
