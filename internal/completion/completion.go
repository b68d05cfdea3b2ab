package completion

import (
	"booksummary/internal/config"
	"context"
	"fmt"
)

type Shape int

const (
	ShapePlain Shape = iota
	ShapeJSON
)

// Request describes a single completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Shape        Shape
	// SchemaName and Schema describe the expected object when Shape is ShapeJSON.
	// The caller parses the returned text.
	SchemaName string
	Schema     map[string]any
}

// Client returns the raw text of one completion. Implementations make a
// single attempt and report every failure as *ProviderError.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// New builds the client for the configured provider.
func New(cfg config.Config) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(OpenAIConfig{
			APIKey:          cfg.OpenAIAPIKey,
			Model:           cfg.OpenAIModel,
			ReasoningEffort: cfg.OpenAIReasoningEffort,
			Timeout:         cfg.CompletionTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create OpenAI client: %w", err)
		}
		return c, nil
	case config.ProviderAnthropic:
		c, err := NewAnthropicClient(AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.CompletionTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create Anthropic client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}
