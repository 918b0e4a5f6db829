package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/ragbench/internal/config"
	"github.com/hyperjump/ragbench/internal/generation"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/internal/pipeline"
	"github.com/hyperjump/ragbench/internal/prompt"
	"github.com/hyperjump/ragbench/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIndex struct {
	dir    string
	name   string
	mu     sync.Mutex
	closed bool
}

func (f *fakeIndex) Retrieve(ctx context.Context, query string, k int) ([]*models.Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("index %s is closed", f.name)
	}
	return []*models.Fragment{{ChunkID: f.name + "-1", Source: "p1544.pdf", Page: 2, Content: "context from " + f.name, Score: 0.9}}, nil
}

func (f *fakeIndex) Dir() string { return f.dir }
func (f *fakeIndex) Size() int { return 1 }

func (f *fakeIndex) Info() storage.IndexInfo {
	return storage.IndexInfo{EmbeddingModel: "mock", Dimensions: 4, ChunkSize: 1000, ChunkOverlap: 100, Chunks: 1, Documents: 1}
}

func (f *fakeIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeIndex) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type echoGenerator struct {
	err error
}

func (g *echoGenerator) Generate(ctx context.Context, modelID, p string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return modelID + " saw: " + p, nil
}

func newTestServer(t *testing.T, gen generation.Generator) (*Server, *fakeIndex) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.vec"), []byte("1234"), 0644))
	table, err := options.NewTable(
		[]string{"claude-3-5-haiku-20241022", "claude-3-5-sonnet-20241022", "gemini-2.5-flash"},
		[]string{prompt.OptionOne, prompt.OptionTwo, prompt.OptionThree},
	)
	require.NoError(t, err)
	p := pipeline.New(gen, pipeline.WithDefaultModel("claude-3-5-haiku-20241022"))
	idx := &fakeIndex{dir: dir, name: "first"}
	return NewServer(p, table, idx, &config.ServerConfig{Port: 8080}, zap.NewNop()), idx
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &echoGenerator{})
	w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleStatus(t *testing.T) {
	srv, idx := newTestServer(t, &echoGenerator{})
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, idx.dir, out["index_dir"])
	assert.EqualValues(t, 1, out["chunks"])
	assert.EqualValues(t, 3, out["top_k"])
	assert.EqualValues(t, 4, out["disk_usage_bytes"])
	assert.Equal(t, "mock", out["embedding_model"])
}

func TestHandleOptions(t *testing.T) {
	srv, _ := newTestServer(t, &echoGenerator{})
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		LLMOptions    map[string]string `json:"llm_options"`
		PromptOptions map[string]string `json:"prompt_options"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "claude-3-5-sonnet-20241022", out.LLMOptions["llm_option_two"])
	assert.Equal(t, prompt.OptionThree, out.PromptOptions["prompt_option_three"])
	assert.Len(t, out.LLMOptions, 3)
}

func TestHandleAnswer(t *testing.T) {
	srv, _ := newTestServer(t, &echoGenerator{})
	h := srv.Handler()

	t.Run("concrete parameters", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/v1/answer", models.AnswerRequest{
			LLMID:          "gemini-2.5-flash",
			PromptTemplate: "[{context}] {question}",
			Query:          "deadline?",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var ans models.Answer
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ans))
		assert.Equal(t, "gemini-2.5-flash saw: [context from first] deadline?", ans.Text)
		require.Len(t, ans.Sources, 1)
		assert.Equal(t, "p1544.pdf", ans.Sources[0].Source)
	})

	t.Run("option codes", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/v1/answer", models.AnswerRequest{
			LLMOption:    "llm_option_three",
			PromptOption: "prompt_option_two",
			Query:        "deadline?",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var ans models.Answer
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ans))
		assert.Equal(t, "gemini-2.5-flash", ans.ModelID)
		assert.Contains(t, ans.Text, "Question: deadline?")
	})

	t.Run("defaults", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/v1/answer", map[string]string{})
		require.Equal(t, http.StatusOK, w.Code)
		var ans models.Answer
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ans))
		assert.Equal(t, "claude-3-5-haiku-20241022", ans.ModelID)
		assert.Equal(t, prompt.DefaultQuery, ans.Query)
	})

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"unknown llm option", models.AnswerRequest{LLMOption: "llm_option_four", Query: "q"}, http.StatusBadRequest},
		{"unknown prompt option", models.AnswerRequest{PromptOption: "prompt_option_four", Query: "q"}, http.StatusBadRequest},
		{"template missing slot", models.AnswerRequest{PromptTemplate: "{question}", Query: "q"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/api/v1/answer", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}

	t.Run("invalid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/answer", strings.NewReader("{"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleAnswer_accessDenied(t *testing.T) {
	srv, _ := newTestServer(t, &echoGenerator{err: fmt.Errorf("anthropic: %w", generation.ErrAccessDenied)})
	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/answer", models.AnswerRequest{Query: "q"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSwapIndex(t *testing.T) {
	srv, first := newTestServer(t, &echoGenerator{})
	h := srv.Handler()
	second := &fakeIndex{dir: t.TempDir(), name: "second"}

	require.NoError(t, srv.SwapIndex(second))
	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())

	w := doJSON(t, h, http.MethodPost, "/api/v1/answer", models.AnswerRequest{PromptTemplate: "{context}|{question}", Query: "q"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "context from second")

	require.NoError(t, srv.Close())
	assert.True(t, second.isClosed())
	w = doJSON(t, h, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSwapIndex_afterCloseReleasesIndex(t *testing.T) {
	srv, _ := newTestServer(t, &echoGenerator{})
	require.NoError(t, srv.Close())

	late := &fakeIndex{dir: t.TempDir(), name: "late"}
	err := srv.SwapIndex(late)
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, late.isClosed())

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
