package provider

import (
	"fmt"
	"os"
	"strings"

	"docdigest/internal/domain"
	"docdigest/internal/logger"
	"docdigest/internal/summarizer"
)

const (
	TypeAuto   = "auto"
	TypeRemote = "remote"
	TypeLocal  = "local"
)

// Config chooses and configures the summarization provider.
type Config struct {
	// Type is auto, remote or local. Auto prefers remote when its key is set.
	Type      string       `yaml:"type"`
	Remote    RemoteConfig `yaml:"remote"`
	CacheSize int          `yaml:"cache_size"`
	// DisableCache skips the LRU decorator.
	DisableCache bool `yaml:"disable_cache"`
}

// Select picks the provider once, before any processing starts.
func Select(cfg Config, log logger.Logger) (domain.Provider, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	var p domain.Provider
	switch strings.ToLower(cfg.Type) {
	case "", TypeAuto:
		remoteCfg := cfg.Remote.withDefaults()
		if os.Getenv(remoteCfg.APIKeyEnv) == "" {
			log.Info("no API key configured, using local summarizer", "env", remoteCfg.APIKeyEnv)
			p = summarizer.NewLocal()
			break
		}
		r, err := NewRemote(cfg.Remote)
		if err != nil {
			return nil, err
		}
		p = r
	case TypeRemote:
		r, err := NewRemote(cfg.Remote)
		if err != nil {
			return nil, err
		}
		p = r
	case TypeLocal:
		p = summarizer.NewLocal()
	default:
		return nil, fmt.Errorf("provider: unknown type %q: %w", cfg.Type, domain.ErrInvalidConfig)
	}
	log.Debug("provider selected", "provider", p.Name())
	if cfg.DisableCache {
		return p, nil
	}
	return NewCached(p, cfg.CacheSize)
}

// Available reports whether the remote provider could be used.
func Available(cfg Config) bool {
	return os.Getenv(cfg.Remote.withDefaults().APIKeyEnv) != ""
}
