package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// Fetcher downloads the source documents into the corpus directory.
type Fetcher struct {
	urls   []string
	client *http.Client
	logger *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithFetchLogger sets a logger for download progress.
func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher returns a Fetcher for urls. timeout bounds each download; zero means none.
func NewFetcher(urls []string, timeout time.Duration, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		urls:   urls,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = utils.OrNop(f.logger)
	return f
}

// Fetch downloads every URL into dir, naming each file after the last path segment
// of its URL. dir is created if needed. Files are written under a temporary name and
// renamed, so an interrupted download never leaves a partial .pdf behind.
func (f *Fetcher) Fetch(ctx context.Context, dir string) error {
	if len(f.urls) == 0 {
		return fmt.Errorf("no source URLs configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}
	for _, u := range f.urls {
		name, err := fileName(u)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, name)
		f.logger.Info("downloading source document", zap.String("url", u), zap.String("path", dst))
		if err := f.download(ctx, u, dst); err != nil {
			return fmt.Errorf("download %s: %w", u, err)
		}
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse source URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("source URL %q has no file name", rawURL)
	}
	return name, nil
}
