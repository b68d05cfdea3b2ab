package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	openAIProviderName = "openai"

	// Each call is a single request, so the budget covers the longest
	// expected summary.
	maxOutputTokens int64 = 4096
)

type OpenAIConfig struct {
	APIKey          string
	Model           string
	ReasoningEffort string
	Timeout         time.Duration
	// BaseURL overrides the API endpoint, e.g. for compatible gateways.
	BaseURL string
}

// OpenAIClient calls OpenAI's Responses API.
type OpenAIClient struct {
	client          openai.Client
	model           string
	reasoningEffort string
	timeout         time.Duration
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT5Mini
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:          openai.NewClient(opts...),
		model:           model,
		reasoningEffort: strings.TrimSpace(cfg.ReasoningEffort),
		timeout:         cfg.Timeout,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return "", providerError(openAIProviderName, errors.New("prompt is empty"))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.UserPrompt),
		},
	}
	if systemPrompt := strings.TrimSpace(req.SystemPrompt); systemPrompt != "" {
		params.Instructions = openai.String(systemPrompt)
	}
	if c.reasoningEffort != "" {
		params.Reasoning = responses.ReasoningParam{
			Effort: openai.ReasoningEffort(c.reasoningEffort),
		}
	}
	if req.Shape == ShapeJSON && req.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   schemaName(req.SchemaName),
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	params.MaxOutputTokens = openai.Int(maxOutputTokens)

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", providerError(openAIProviderName, fmt.Errorf("do request: %w", err))
	}

	if resp.Status == "incomplete" {
		return "", providerError(openAIProviderName, fmt.Errorf(
			"response is incomplete (reason = %s, maxOutputTokens = %d)",
			resp.IncompleteDetails.Reason,
			maxOutputTokens,
		))
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", providerError(openAIProviderName, fmt.Errorf("output text is missing (status = %s)", resp.Status))
	}
	return text, nil
}

func schemaName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "result"
	}
	return name
}
