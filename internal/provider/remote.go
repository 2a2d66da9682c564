// Package provider contains the remote summarization client, a caching
// decorator and the logic that picks a provider at startup.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"docdigest/internal/domain"
	"docdigest/internal/tokens"
)

const (
	defaultBaseURL   = "https://api.together.xyz/v1"
	defaultModel     = "meta-llama/Llama-3.3-70B-Instruct-Turbo"
	defaultAPIKeyEnv = "TOGETHER_API_KEY"
	defaultTimeout   = 60 * time.Second
	defaultRetries   = 2
	defaultRetryBase = 500 * time.Millisecond
	maxRetryBackoff  = 10 * time.Second
)

// RemoteConfig configures an OpenAI-compatible chat completions endpoint.
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	// MaxRetries counts retries after the first attempt.
	MaxRetries int `yaml:"max_retries"`
	// RetryBase is the first exponential backoff step.
	RetryBase time.Duration `yaml:"retry_base"`
	// RequestsPerMinute paces outgoing calls; zero disables pacing.
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
}

func (c RemoteConfig) withDefaults() RemoteConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultRetries
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	return c
}

// Remote summarizes through an OpenAI-compatible /chat/completions API and
// asks for a JSON object reply.
type Remote struct {
	cfg     RemoteConfig
	client  *resty.Client
	limiter *rate.Limiter
}

// NewRemote builds the client. The API key is read from cfg.APIKeyEnv.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	cfg = cfg.withDefaults()
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("provider: missing API key in env %s: %w", cfg.APIKeyEnv, domain.ErrInvalidConfig)
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(key)
	r := &Remote{cfg: cfg, client: client}
	if cfg.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	return r, nil
}

// Name identifies the provider.
func (r *Remote) Name() string { return "remote" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize implements domain.Provider.
func (r *Remote) Summarize(ctx context.Context, text, language string, opts domain.Options) (domain.Summary, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = opts.Level.MaxTokens()
	}
	body := chatRequest{
		Model: r.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(language, opts.Level)},
			{Role: "user", Content: text},
		},
		MaxTokens:      maxTokens,
		Temperature:    0.2,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	backoff := retry.NewExponential(r.cfg.RetryBase)
	backoff = retry.WithCappedDuration(maxRetryBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(r.cfg.MaxRetries), backoff) // #nosec G115 -- non-negative after withDefaults

	var content string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var callErr error
		content, callErr = r.complete(ctx, body)
		if callErr != nil && retryable(callErr) {
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		var perr *domain.ProviderError
		if errors.As(err, &perr) {
			return domain.Summary{}, perr
		}
		return domain.Summary{}, &domain.ProviderError{Provider: r.Name(), Err: err}
	}
	return r.parse(content)
}

func (r *Remote) complete(ctx context.Context, body chatRequest) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", &domain.ProviderError{Provider: r.Name(), Err: err}
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return "", &domain.ProviderError{
			Provider: r.Name(),
			Status:   resp.StatusCode(),
			Err:      fmt.Errorf("chat completions: %s", resp.Status()),
		}
	}
	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", &domain.ProviderError{Provider: r.Name(), Status: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &domain.ProviderError{Provider: r.Name(), Status: resp.StatusCode(), Err: errors.New("empty choices")}
	}
	return out.Choices[0].Message.Content, nil
}

// retryable reports transport failures, 429 and 5xx replies.
func retryable(err error) bool {
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	if perr.Status == 0 {
		return !errors.Is(perr.Err, context.Canceled) && !errors.Is(perr.Err, context.DeadlineExceeded)
	}
	return perr.Status == http.StatusTooManyRequests || perr.Status >= http.StatusInternalServerError
}

func (r *Remote) parse(content string) (domain.Summary, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	var s domain.Summary
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &s); err != nil {
		return domain.Summary{}, &domain.ProviderError{Provider: r.Name(), Err: fmt.Errorf("decode summary: %w", err)}
	}
	if strings.TrimSpace(s.Summary) == "" {
		return domain.Summary{}, &domain.ProviderError{Provider: r.Name(), Err: errors.New("reply has no summary")}
	}
	if s.ContentType == "acknowledgements" {
		s.ContentType = "acknowledgement"
	}
	return s, nil
}

var nativeNames = map[string]string{
	"chinese":    "中文",
	"japanese":   "日本語",
	"korean":     "한국어",
	"english":    "English",
	"spanish":    "Español",
	"french":     "Français",
	"german":     "Deutsch",
	"italian":    "Italiano",
	"portuguese": "Português",
	"russian":    "Русский",
	"arabic":     "العربية",
	"hindi":      "हिन्दी",
	"thai":       "ไทย",
}

func systemPrompt(language string, level domain.SummaryLevel) string {
	target := nativeNames[tokens.NormalizeLanguage(language)]
	if target == "" {
		target = language
	}
	if target == "" {
		target = "English"
	}
	depth := "balanced"
	switch level {
	case domain.LevelBrief:
		depth = "concise"
	case domain.LevelDetailed:
		depth = "detailed"
	}
	return fmt.Sprintf(`You are an expert document analyst.
Return one JSON object with exactly these fields:
- title: a descriptive title (string)
- summary: a %s HTML summary using <p> paragraphs and <ul><li> lists with closed tags (string)
- keywords: 3 to 8 key terms (array of strings)
- importance: 0.9-1.0 core findings, 0.7-0.8 supporting detail, 0.5-0.6 background, 0.3-0.4 examples, 0.0-0.2 transitions (number)
- contentType: one of introduction, main_content, conclusion, example, reference, acknowledgement
Write the title, summary and keywords in %s.`, depth, target)
}
