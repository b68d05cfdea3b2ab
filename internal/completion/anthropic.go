package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicProviderName = "anthropic"

type AnthropicConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string
}

// AnthropicClient calls Anthropic's Messages API. It has no native JSON
// schema mode, so the schema is appended to the system prompt.
type AnthropicClient struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return "", providerError(anthropicProviderName, errors.New("prompt is empty"))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	systemPrompt, err := anthropicSystemPrompt(req)
	if err != nil {
		return "", providerError(anthropicProviderName, err)
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	params.MaxTokens = maxOutputTokens

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", providerError(anthropicProviderName, fmt.Errorf("do request: %w", err))
	}

	if msg.StopReason == anthropic.StopReasonMaxTokens {
		return "", providerError(anthropicProviderName, fmt.Errorf(
			"response is incomplete (reason = %s, maxTokens = %d)",
			msg.StopReason,
			maxOutputTokens,
		))
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", providerError(anthropicProviderName, fmt.Errorf("output text is missing (stopReason = %s)", msg.StopReason))
	}
	return text, nil
}

func anthropicSystemPrompt(req Request) (string, error) {
	systemPrompt := strings.TrimSpace(req.SystemPrompt)
	if req.Shape != ShapeJSON || req.Schema == nil {
		return systemPrompt, nil
	}

	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object and no extra text. It must match this JSON schema:\n")
	b.Write(schema)

	return b.String(), nil
}
