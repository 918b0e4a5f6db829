// Package config provides configuration loading and structs for ragbench.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline, the driver and the server.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Index      IndexConfig      `yaml:"index"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Options    OptionsConfig    `yaml:"options"`
	Delegate   DelegateConfig   `yaml:"delegate"`
	Server     ServerConfig     `yaml:"server"`

	// Path is the absolute path the config was loaded from. It is not serialized.
	Path string `yaml:"-"`
}

// IndexConfig holds the location of the persisted similarity index.
type IndexConfig struct {
	Dir string `yaml:"dir"`
}

// CorpusConfig holds the source document directory and the fetch list used to populate it.
type CorpusConfig struct {
	Dir              string   `yaml:"dir"`
	URLs             []string `yaml:"urls"`
	FetchTimeoutSecs int      `yaml:"fetch_timeout_secs"`
}

// FetchTimeout returns the per-download timeout.
func (c CorpusConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// ChunkingConfig holds splitter settings, in characters.
type ChunkingConfig struct {
	Size int `yaml:"size"`
	// Overlap is a pointer so that an explicit 0 survives ApplyDefaults.
	Overlap *int `yaml:"overlap"`
}

// OverlapChars returns the configured overlap, or 0 when unset.
func (c ChunkingConfig) OverlapChars() int {
	if c.Overlap == nil {
		return 0
	}
	return *c.Overlap
}

// EmbeddingConfig holds settings for the remote embedding service.
type EmbeddingConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	CacheSize         int     `yaml:"cache_size"`
}

// Timeout returns the per-request timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// GenerationConfig holds settings for the hosted LLMs.
type GenerationConfig struct {
	DefaultModel    string  `yaml:"default_model"`
	AnthropicKeyEnv string  `yaml:"anthropic_key_env"`
	GeminiKeyEnv    string  `yaml:"gemini_key_env"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// OptionsConfig holds the values behind the driver's option codes, in code order
// (one, two, three).
type OptionsConfig struct {
	LLMs    []string `yaml:"llms"`
	Prompts []string `yaml:"prompts"`
}

// DelegateConfig selects how the driver reaches the pipeline.
type DelegateConfig struct {
	// Mode is "inprocess" or "exec".
	Mode string `yaml:"mode"`
	// Command is the pipeline binary used in exec mode.
	Command string `yaml:"command"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	WatchCorpus bool   `yaml:"watch_corpus"`
}

// Default returns a config with every default applied, with paths relative to the
// working directory.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.expandPaths(".")
	return cfg
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// A missing file is not an error: defaults are returned with paths relative to the
// file's directory.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.expandPaths(filepath.Dir(path))
	cfg.Path = expandPath(path, ".")
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if overlap := c.Chunking.OverlapChars(); overlap < 0 || overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be in [0, chunking.size (%d))", overlap, c.Chunking.Size)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.Delegate.Mode {
	case DelegateInProcess:
	case DelegateExec:
		if c.Delegate.Command == "" {
			return fmt.Errorf("delegate.command is required when delegate.mode is %q", DelegateExec)
		}
	default:
		return fmt.Errorf("unknown delegate.mode %q (supported: %s, %s)", c.Delegate.Mode, DelegateInProcess, DelegateExec)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths(configDir string) {
	c.Index.Dir = expandPath(c.Index.Dir, configDir)
	c.Corpus.Dir = expandPath(c.Corpus.Dir, configDir)
	if c.Delegate.Command != "" && strings.ContainsRune(c.Delegate.Command, filepath.Separator) {
		c.Delegate.Command = expandPath(c.Delegate.Command, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "~/" are relative to the
// home directory; other relative paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Join(configDir, path))
	if err != nil {
		return filepath.Join(configDir, path)
	}
	return abs
}
