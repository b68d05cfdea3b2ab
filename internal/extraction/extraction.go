package extraction

import (
	"booksummary/internal/completion"
	"booksummary/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	systemPrompt = "You are a helpful assistant."

	instruction = "Extract the book title and author from the following text. " +
		"Return the result in JSON format with keys 'title' and 'author'. " +
		"If there's no clear book title, set the title to 'No book title found' " +
		"and if there's no clear author, set the author to 'Unknown'. "

	noTitleSentinel  = "no book title found"
	noAuthorSentinel = "unknown"
)

var (
	ErrMalformedResponse = errors.New("malformed extraction response")
	ErrNoTitleFound      = errors.New("no book title found")
)

var bookSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":  map[string]any{"type": "string"},
		"author": map[string]any{"type": "string"},
	},
	"required":             []string{"title", "author"},
	"additionalProperties": false,
}

// Step turns free-form user text into a Book with one completion call.
type Step struct {
	client completion.Client
}

func New(client completion.Client) *Step {
	return &Step{client: client}
}

// Extract returns ErrNoTitleFound, ErrMalformedResponse, or a wrapped
// *completion.ProviderError on failure.
func (s *Step) Extract(ctx context.Context, query string) (domain.Book, error) {
	raw, err := s.client.Complete(ctx, completion.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   instruction + "Text: " + query,
		Shape:        completion.ShapeJSON,
		SchemaName:   "book",
		Schema:       bookSchema,
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("complete: %w", err)
	}

	return ParseBook(raw)
}

// ParseBook decodes a completion into a Book. A single surrounding
// Markdown code fence is tolerated.
func ParseBook(raw string) (domain.Book, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &fields); err != nil {
		return domain.Book{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if fields == nil {
		return domain.Book{}, fmt.Errorf("%w: not a JSON object", ErrMalformedResponse)
	}

	title, err := stringField(fields, "title")
	if err != nil {
		return domain.Book{}, err
	}
	author, err := stringField(fields, "author")
	if err != nil {
		return domain.Book{}, err
	}

	if title == "" || strings.EqualFold(title, noTitleSentinel) {
		return domain.Book{}, ErrNoTitleFound
	}
	if strings.EqualFold(author, noAuthorSentinel) {
		author = ""
	}

	return domain.Book{Title: title, Author: author}, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedResponse, key)
	}

	return strings.TrimSpace(value), nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```"))
	if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
		// language tag, on its own line or followed directly by the body
		inner = inner[4:]
	}

	return strings.TrimSpace(inner)
}
