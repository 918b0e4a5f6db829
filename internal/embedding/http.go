package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 2048

// HTTPConfig configures an HTTPEmbedder.
type HTTPConfig struct {
	// BaseURL is the service root; requests go to BaseURL + "/embeddings".
	BaseURL string
	// APIKeyEnv names the environment variable holding the bearer token. A missing
	// variable is allowed for local services that need no credentials.
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	// RequestsPerSecond throttles calls; 0 disables throttling.
	RequestsPerSecond float64
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint. Ollama's
// {"embedding": [...]} response shape is also accepted.
type HTTPEmbedder struct {
	url        string
	apiKey     string
	model      string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu         sync.Mutex
	dimensions int
}

// HTTPOption configures an HTTPEmbedder.
type HTTPOption func(*HTTPEmbedder)

// WithLogger sets a logger for request-level debug output.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(e *HTTPEmbedder) { e.logger = l }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEmbedder) { e.client = c }
}

// NewHTTPEmbedder creates an embedder for cfg.
func NewHTTPEmbedder(cfg HTTPConfig, opts ...HTTPOption) (*HTTPEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	e := &HTTPEmbedder{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/embeddings",
		model:      cfg.Model,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.APIKeyEnv != "" {
		e.apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// Embed returns the normalized embedding of text. Each call makes exactly one request;
// any non-2xx response is returned as an error.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: text, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := e.post(ctx, body)
	if err != nil {
		e.logger.Debug("embedding request failed", zap.Error(err))
		return nil, err
	}
	utils.NormalizeL2(vec)
	e.setDimensions(len(vec))
	return vec, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden,
		bytes.Contains(payload, []byte("AccessDeniedException")):
		return nil, fmt.Errorf("%w: %s: %s", ErrAccessDenied, resp.Status, snippet(payload))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("embedding service: %s: %s", resp.Status, snippet(payload))
	}
	return decodeEmbedding(payload)
}

func decodeEmbedding(payload []byte) ([]float32, error) {
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	return nil, errors.New("no embedding returned")
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	return utils.Truncate(s, maxErrorBody)
}

// EmbedBatch embeds each text in order. The first failure aborts the batch.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *HTTPEmbedder) setDimensions(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimensions == 0 {
		e.dimensions = n
	}
}

// Dimensions returns the vector size seen on the first successful call, or 0.
func (e *HTTPEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
