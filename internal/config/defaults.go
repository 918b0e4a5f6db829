package config

import "github.com/hyperjump/ragbench/internal/prompt"

// Delegate modes.
const (
	DelegateInProcess = "inprocess"
	DelegateExec      = "exec"
)

// DefaultSourceURLs are the IRS publications fetched into an empty corpus directory.
var DefaultSourceURLs = []string{
	"https://www.irs.gov/pub/irs-pdf/p1544.pdf",
	"https://www.irs.gov/pub/irs-pdf/p15.pdf",
	"https://www.irs.gov/pub/irs-pdf/p1212.pdf",
}

// DefaultLLMs back llm_option_one, llm_option_two and llm_option_three.
var DefaultLLMs = []string{
	"claude-3-5-haiku-20241022",
	"claude-3-5-sonnet-20241022",
	"gemini-2.5-flash",
}

// ApplyDefaults sets default values for any zero values in cfg. Chunking overlap is
// defaulted only when absent.
func ApplyDefaults(cfg *Config) {
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "./rag_index"
	}
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "./data"
	}
	if cfg.Corpus.URLs == nil {
		cfg.Corpus.URLs = append([]string(nil), DefaultSourceURLs...)
	}
	if cfg.Corpus.FetchTimeoutSecs == 0 {
		cfg.Corpus.FetchTimeoutSecs = 120
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == nil {
		overlap := 100
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "EMBEDDING_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Generation.DefaultModel == "" {
		cfg.Generation.DefaultModel = DefaultLLMs[0]
	}
	if cfg.Generation.AnthropicKeyEnv == "" {
		cfg.Generation.AnthropicKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.Generation.GeminiKeyEnv == "" {
		cfg.Generation.GeminiKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if len(cfg.Options.LLMs) == 0 {
		cfg.Options.LLMs = append([]string(nil), DefaultLLMs...)
	}
	if len(cfg.Options.Prompts) == 0 {
		cfg.Options.Prompts = []string{prompt.OptionOne, prompt.OptionTwo, prompt.OptionThree}
	}
	if cfg.Delegate.Mode == "" {
		cfg.Delegate.Mode = DelegateInProcess
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}
