// Package corpus manages the directory of source PDFs: checking it, populating it
// from a fixed list of URLs, and loading its pages.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/ragbench/internal/extract"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// Valid reports whether dir exists, is a directory, and holds at least one .pdf file.
func Valid(dir string) bool {
	files, err := PDFFiles(dir)
	return err == nil && len(files) > 0
}

// PDFFiles returns the .pdf files directly inside dir, sorted by name.
func PDFFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Loader turns every PDF in a directory into one Document per page.
type Loader struct {
	extractor *extract.Extractor
	logger    *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets a logger for per-file debug output.
func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// NewLoader returns a Loader backed by extractor.
func NewLoader(extractor *extract.Extractor, opts ...LoaderOption) *Loader {
	ld := &Loader{extractor: extractor}
	for _, opt := range opts {
		opt(ld)
	}
	ld.logger = utils.OrNop(ld.logger)
	return ld
}

// Load returns the pages of every PDF in dir. A file that cannot be parsed fails the load.
func (ld *Loader) Load(dir string) ([]*models.Document, error) {
	files, err := PDFFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	var docs []*models.Document
	for _, path := range files {
		pages, err := ld.extractor.ExtractPages(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		name := filepath.Base(path)
		for i, text := range pages {
			docs = append(docs, &models.Document{
				ID:      fmt.Sprintf("%s#%d", name, i+1),
				Source:  name,
				Page:    i + 1,
				Content: text,
			})
		}
		ld.logger.Debug("corpus file loaded", zap.String("file", name), zap.Int("pages", len(pages)))
	}
	return docs, nil
}
