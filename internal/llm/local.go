package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LocalClient offline client that answers by echoing the conversation.
// Used when no remote provider is configured.
type LocalClient struct {
	model string
}

// NewLocal creates a local client
func NewLocal(model string) *LocalClient {
	if model == "" {
		model = "echo"
	}
	return &LocalClient{model: model}
}

func (c *LocalClient) Provider() Provider {
	return ProviderLocal
}

func (c *LocalClient) Model() string {
	return c.model
}

// Complete answers with the last user message, truncated to MaxTokens words
func (c *LocalClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("local client: no user message to answer")
	}

	words := strings.Fields(prompt)
	finish := "stop"
	if req.MaxTokens > 0 && len(words) > req.MaxTokens {
		words = words[:req.MaxTokens]
		finish = "length"
	}

	return &Response{
		Content:      strings.Join(words, " "),
		Provider:     ProviderLocal,
		Model:        c.model,
		TokensUsed:   len(words),
		FinishReason: finish,
		Latency:      time.Since(start),
		Metadata:     map[string]any{"offline": true},
	}, nil
}

// Stream emits the completion word by word
func (c *LocalClient) Stream(ctx context.Context, req Request, handler StreamHandler) (*Response, error) {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if handler != nil {
		for _, word := range strings.Fields(resp.Content) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			handler(word + " ")
		}
	}
	return resp, nil
}
