package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how documents are split into chunks. Sizes are
// counted in characters. MinChunkSize and OverlapSize accept an explicit 0.
type ChunkerConfig struct {
	Strategy     string `yaml:"strategy"`
	MaxChunkSize int    `yaml:"max_chunk_size"`
	MinChunkSize *int   `yaml:"min_chunk_size"`
	OverlapSize  *int   `yaml:"overlap_size"`
	WindowSize   int    `yaml:"window_size"`
	StepSize     int    `yaml:"step_size"`
	FixedSize    int    `yaml:"fixed_size"`
	// sentence strategy only
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	OverlapSentences  int `yaml:"overlap_sentences"`
}

// ContextConfig sizes context windows.
type ContextConfig struct {
	MaxContextTokens int `yaml:"max_context_tokens"`
	MaxChunks        int `yaml:"max_chunks"`
}

// OrchestratorConfig tunes batched enrichment. An explicit 0 delay disables
// the pause.
type OrchestratorConfig struct {
	BatchSize             int    `yaml:"batch_size"`
	BatchDelayMs          *int   `yaml:"batch_delay_ms"`
	StreamDelayMs         *int   `yaml:"stream_delay_ms"`
	CallTimeoutSecs       int    `yaml:"call_timeout_secs"`
	FallbackSummaryLength int    `yaml:"fallback_summary_length"`
	Level                 string `yaml:"level"`
	// PriorityStream orders streaming by importance. Freshly chunked
	// documents carry no importance yet, so for them it keeps index order.
	PriorityStream *bool `yaml:"priority_stream"`
}

// RemoteProviderConfig holds configuration for the OpenAI-compatible summarizer.
type RemoteProviderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
}

// ProviderConfig selects the summarization provider: auto, remote or local.
type ProviderConfig struct {
	Type         string                `yaml:"type"`
	Remote       *RemoteProviderConfig `yaml:"remote,omitempty"`
	CacheSize    int                   `yaml:"cache_size"`
	DisableCache bool                  `yaml:"disable_cache"`
}

// TokensConfig selects the token estimator: ratio or tiktoken.
type TokensConfig struct {
	Estimator string `yaml:"estimator"`
	Encoding  string `yaml:"encoding,omitempty"`
}

// LogConfig mirrors the logger flags.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Language     string             `yaml:"language"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	Context      ContextConfig      `yaml:"context"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Provider     ProviderConfig     `yaml:"provider"`
	Tokens       TokensConfig       `yaml:"tokens"`
	Log          LogConfig          `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docdigest/config.yaml.
// If neither exists, it writes defaults to ~/.config/docdigest/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Ptr returns a pointer to v, for optional settings.
func Ptr[T any](v T) *T { return &v }

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docdigest", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Chunker:  ChunkerConfig{Strategy: "adaptive"},
		Provider: ProviderConfig{Type: "auto"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Language == "" {
		cfg.Language = "english"
	}
	c := &cfg.Chunker
	if c.Strategy == "" {
		c.Strategy = "adaptive"
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = 4000
	}
	if c.MinChunkSize == nil {
		c.MinChunkSize = Ptr(500)
	}
	if c.OverlapSize == nil {
		c.OverlapSize = Ptr(200)
	}
	if c.WindowSize == 0 {
		c.WindowSize = 4000
	}
	if c.StepSize == 0 {
		c.StepSize = 3000
	}
	if c.FixedSize == 0 {
		c.FixedSize = 4000
	}
	if c.SentencesPerChunk == 0 {
		c.SentencesPerChunk = 5
		if c.OverlapSentences == 0 {
			c.OverlapSentences = 1
		}
	}
	if cfg.Context.MaxContextTokens == 0 {
		cfg.Context.MaxContextTokens = 32000
	}
	if cfg.Context.MaxChunks == 0 {
		cfg.Context.MaxChunks = 10
	}
	o := &cfg.Orchestrator
	if o.BatchSize == 0 {
		o.BatchSize = 5
	}
	if o.BatchDelayMs == nil {
		o.BatchDelayMs = Ptr(100)
	}
	if o.StreamDelayMs == nil {
		o.StreamDelayMs = Ptr(50)
	}
	if o.CallTimeoutSecs == 0 {
		o.CallTimeoutSecs = 60
	}
	if o.FallbackSummaryLength == 0 {
		o.FallbackSummaryLength = 200
	}
	if o.Level == "" {
		o.Level = "medium"
	}
	if o.PriorityStream == nil {
		o.PriorityStream = Ptr(true)
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "auto"
	}
	if cfg.Provider.CacheSize == 0 {
		cfg.Provider.CacheSize = 512
	}
	if cfg.Provider.Remote == nil {
		cfg.Provider.Remote = &RemoteProviderConfig{}
	}
	r := cfg.Provider.Remote
	if r.BaseURL == "" {
		r.BaseURL = "https://api.together.xyz/v1"
	}
	if r.APIKeyEnv == "" {
		r.APIKeyEnv = "TOGETHER_API_KEY"
	}
	if r.Model == "" {
		r.Model = "meta-llama/Llama-3.3-70B-Instruct-Turbo"
	}
	if r.TimeoutSecs == 0 {
		r.TimeoutSecs = 60
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 2
	}
	if cfg.Tokens.Estimator == "" {
		cfg.Tokens.Estimator = "ratio"
	}
	if cfg.Tokens.Estimator == "tiktoken" && cfg.Tokens.Encoding == "" {
		cfg.Tokens.Encoding = "cl100k_base"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
