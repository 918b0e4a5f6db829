package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ragbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
retrieval:
  top_k: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.False(t, cfg.Debug, "debug should default to false when unset")
}

func TestLoad_defaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.OverlapChars())
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultSourceURLs, cfg.Corpus.URLs)
	assert.Len(t, cfg.Options.LLMs, 3)
	assert.Len(t, cfg.Options.Prompts, 3)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.Generation.DefaultModel)
	assert.Equal(t, DelegateInProcess, cfg.Delegate.Mode)
}

func TestLoad_missingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rag_index"), cfg.Index.Dir)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Corpus.Dir)
	assert.Equal(t, filepath.Join(dir, "absent.yaml"), cfg.Path)
}

func TestLoad_explicitZeroOverlap(t *testing.T) {
	cfg, err := Load(writeConfig(t, "chunking:\n  size: 500\n  overlap: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Chunking.Overlap)
	assert.Equal(t, 0, cfg.Chunking.OverlapChars())
	assert.Equal(t, 500, cfg.Chunking.Size)
}

func TestLoad_relativePathsFollowConfigDir(t *testing.T) {
	path := writeConfig(t, `
index:
  dir: "./cache/index"
corpus:
  dir: "pdfs"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "cache", "index"), cfg.Index.Dir)
	assert.Equal(t, filepath.Join(dir, "pdfs"), cfg.Corpus.Dir)
}

func TestLoad_absolutePathUnchanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "idx")
	path := writeConfig(t, "index:\n  dir: \""+abs+"\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Index.Dir)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap not below size", "chunking:\n  size: 100\n  overlap: 100\n"},
		{"negative overlap", "chunking:\n  overlap: -1\n"},
		{"negative top_k", "retrieval:\n  top_k: -1\n"},
		{"unknown delegate mode", "delegate:\n  mode: rpc\n"},
		{"exec without command", "delegate:\n  mode: exec\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSave_roundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")
	cfg := Default()
	cfg.Retrieval.TopK = 7
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.Equal(t, cfg.Options.LLMs, loaded.Options.LLMs)
}
