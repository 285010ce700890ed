// Package llm provides chat completion clients for the agent's fallback path.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hession/taskmate/internal/config"
	"github.com/hession/taskmate/internal/logger"
)

// Provider LLM backend identifier
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderLocal     Provider = "local"
)

// Message chat message
type Message struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// Request completion request. Zero MaxTokens / Temperature use the client's
// configured values.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Response completion result
type Response struct {
	Content      string         `json:"content"`
	Provider     Provider       `json:"provider"`
	Model        string         `json:"model"`
	TokensUsed   int            `json:"tokens_used"`
	FinishReason string         `json:"finish_reason"`
	Latency      time.Duration  `json:"latency"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// StreamHandler receives streamed content chunks
type StreamHandler func(chunk string)

// Client chat completion client
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, handler StreamHandler) (*Response, error)
	Provider() Provider
	Model() string
}

// New creates a client for the configured provider
func New(cfg config.ModelConfig) (Client, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case "", ProviderLocal:
		return NewLocal(cfg.Model), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropic(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// retryDelay base wait between attempts; attempt i waits (i+1)*retryDelay
var retryDelay = time.Second

// CompleteWithRetry calls Complete up to maxRetries times with linear backoff
func CompleteWithRetry(ctx context.Context, c Client, req Request, maxRetries int) (*Response, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		resp, err := c.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		logger.Warn("LLM request failed (attempt %d/%d): %v", i+1, maxRetries, err)

		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * retryDelay):
		}
	}
	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// params resolves request settings against client defaults
func (r Request) params(defaultMaxTokens int, defaultTemperature float64) (int, float64) {
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := r.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return maxTokens, temperature
}
