// Package extract provides per-page text extraction from PDF and plain text files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether path has an extension the extractor understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// ExtractPages reads the file at path and returns the text of each page, in order.
func (e *Extractor) ExtractPages(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractPagesBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractPagesBytes extracts page text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractPagesBytes(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDFPages(content)
	case ".txt", ".md", "":
		return extractPlainPages(content), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}
