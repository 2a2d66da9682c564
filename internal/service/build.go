package service

import (
	"fmt"
	"time"

	"docdigest/internal/chunker"
	"docdigest/internal/config"
	"docdigest/internal/contextmgr"
	"docdigest/internal/domain"
	"docdigest/internal/extract"
	"docdigest/internal/logger"
	"docdigest/internal/orchestrator"
	"docdigest/internal/provider"
	"docdigest/internal/tokens"
)

// Build assembles a DigestService from application config. The provider is
// selected here, once.
func Build(cfg *config.AppConfig, log logger.Logger) (*DigestService, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	stock := chunker.DefaultConfig()
	ch, err := chunker.New(chunker.Config{
		Strategy:     cfg.Chunker.Strategy,
		MaxChunkSize: cfg.Chunker.MaxChunkSize,
		MinChunkSize: valueOr(cfg.Chunker.MinChunkSize, stock.MinChunkSize),
		OverlapSize:  valueOr(cfg.Chunker.OverlapSize, stock.OverlapSize),
		WindowSize:   cfg.Chunker.WindowSize,
		StepSize:     cfg.Chunker.StepSize,
		FixedSize:    cfg.Chunker.FixedSize,

		SentencesPerChunk: cfg.Chunker.SentencesPerChunk,
		OverlapSentences:  cfg.Chunker.OverlapSentences,
	})
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	est, err := buildEstimator(cfg.Tokens)
	if err != nil {
		return nil, err
	}
	contexts, err := contextmgr.New(contextmgr.Config{
		MaxContextTokens: cfg.Context.MaxContextTokens,
		Language:         cfg.Language,
	}, est)
	if err != nil {
		return nil, err
	}

	p, err := provider.Select(providerConfig(cfg.Provider), log)
	if err != nil {
		return nil, err
	}
	o := cfg.Orchestrator
	defaults := orchestrator.DefaultConfig()
	orch, err := orchestrator.New(p, orchestrator.Config{
		BatchSize:             o.BatchSize,
		BatchDelay:            millis(o.BatchDelayMs, defaults.BatchDelay),
		StreamDelay:           millis(o.StreamDelayMs, defaults.StreamDelay),
		CallTimeout:           time.Duration(o.CallTimeoutSecs) * time.Second,
		FallbackSummaryLength: o.FallbackSummaryLength,
		Level:                 domain.SummaryLevel(o.Level),
		PriorityStream:        valueOr(o.PriorityStream, defaults.PriorityStream),
	}, log)
	if err != nil {
		return nil, err
	}
	return NewDigestService(extract.NewPlainText(), ch, contexts, orch, cfg.Language, cfg.Context.MaxChunks, log), nil
}

func buildEstimator(cfg config.TokensConfig) (tokens.Estimator, error) {
	switch cfg.Estimator {
	case "", "ratio":
		return tokens.NewRatioEstimator(), nil
	case "tiktoken":
		est, err := tokens.NewTiktokenEstimator(cfg.Encoding)
		if err != nil {
			return nil, fmt.Errorf("tiktoken: %w", err)
		}
		return est, nil
	default:
		return nil, fmt.Errorf("token estimator %q: %w", cfg.Estimator, domain.ErrInvalidConfig)
	}
}

func providerConfig(cfg config.ProviderConfig) provider.Config {
	out := provider.Config{Type: cfg.Type, CacheSize: cfg.CacheSize, DisableCache: cfg.DisableCache}
	if r := cfg.Remote; r != nil {
		out.Remote = provider.RemoteConfig{
			BaseURL:           r.BaseURL,
			APIKeyEnv:         r.APIKeyEnv,
			Model:             r.Model,
			Timeout:           time.Duration(r.TimeoutSecs) * time.Second,
			MaxRetries:        r.MaxRetries,
			RequestsPerMinute: r.RequestsPerMinute,
		}
	}
	return out
}

// valueOr dereferences an optional setting, using def when it is unset.
func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func millis(ms *int, def time.Duration) time.Duration {
	if ms == nil {
		return def
	}
	return time.Duration(*ms) * time.Millisecond
}
