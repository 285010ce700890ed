package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient client for the Anthropic Messages API
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropic creates an Anthropic client. An empty baseURL uses the SDK default.
func NewAnthropic(apiKey, baseURL, model string, temperature float64, maxTokens int) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

func (c *AnthropicClient) Model() string {
	return c.model
}

func (c *AnthropicClient) buildParams(req Request) anthropic.MessageNewParams {
	var system []string
	if req.System != "" {
		system = append(system, req.System)
	}

	messages := []anthropic.MessageParam{}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			// System text goes in the top-level field
			system = append(system, msg.Content)
		case "assistant":
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens, temperature := req.params(c.maxTokens, c.temperature)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n")},
		}
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}
	return params
}

// Complete sends a message request
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(b.Text)
		}
	}

	return &Response{
		Content:      content.String(),
		Provider:     ProviderAnthropic,
		Model:        string(resp.Model),
		TokensUsed:   int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		FinishReason: string(resp.StopReason),
		Latency:      time.Since(start),
		Metadata: map[string]any{
			"id":            resp.ID,
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		},
	}, nil
}

// Stream sends a streaming request, passing each text delta to handler
func (c *AnthropicClient) Stream(ctx context.Context, req Request, handler StreamHandler) (*Response, error) {
	start := time.Now()

	stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))
	defer stream.Close()

	var content strings.Builder
	var stopReason string
	var inputTokens, outputTokens int64
	model := c.model

	for stream.Next() {
		event := stream.Current()

		switch evt := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			inputTokens = evt.Message.Usage.InputTokens
			if evt.Message.Model != "" {
				model = string(evt.Message.Model)
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				content.WriteString(delta.Text)
				if handler != nil {
					handler(delta.Text)
				}
			}
		case anthropic.MessageDeltaEvent:
			stopReason = string(evt.Delta.StopReason)
			outputTokens = evt.Usage.OutputTokens
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream failed: %w", err)
	}

	return &Response{
		Content:      content.String(),
		Provider:     ProviderAnthropic,
		Model:        model,
		TokensUsed:   int(inputTokens + outputTokens),
		FinishReason: stopReason,
		Latency:      time.Since(start),
	}, nil
}
