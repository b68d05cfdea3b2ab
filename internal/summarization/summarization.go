package summarization

import (
	"booksummary/internal/completion"
	"booksummary/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	systemPrompt = "You are a helpful assistant."
	userPrompt   = "Summarize the following book information: "

	defaultMaxResults = 10
	maxEvidenceRunes  = 12000
)

var errEmptyTitle = errors.New("title is empty")

// Gatherer collects web evidence for a book title.
type Gatherer interface {
	Gather(ctx context.Context, query string, maxResults int) (domain.EvidenceSet, error)
}

// Step condenses the first evidence item found for a title.
type Step struct {
	evidence   Gatherer
	client     completion.Client
	maxResults int
	log        *slog.Logger
}

func New(
	evidence Gatherer,
	client completion.Client,
	maxResults int,
	log *slog.Logger,
) *Step {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	return &Step{
		evidence:   evidence,
		client:     client,
		maxResults: maxResults,
		log:        log,
	}
}

// Summarize never returns an error: failures are reported through the
// Summary status.
func (s *Step) Summarize(ctx context.Context, title string) domain.Summary {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Summary{Status: domain.SummaryFailed, Err: errEmptyTitle}
	}

	set, err := s.evidence.Gather(ctx, title, s.maxResults)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to gather evidence",
			"error", err,
			"title", title)

		return domain.Summary{
			Status: domain.SummaryFailed,
			Title:  title,
			Err:    fmt.Errorf("gather evidence: %w", err),
		}
	}

	if len(set) == 0 {
		s.log.InfoContext(ctx, "No evidence is found",
			"title", title)

		return domain.Summary{Status: domain.SummaryNotFound, Title: title}
	}

	item := set[0]

	text, err := s.client.Complete(ctx, completion.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt + truncateRunes(item.Text, maxEvidenceRunes),
		Shape:        completion.ShapePlain,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize evidence",
			"error", err,
			"title", title,
			"url", item.URL)

		return domain.Summary{
			Status:    domain.SummaryFailed,
			Title:     title,
			SourceURL: item.URL,
			Err:       fmt.Errorf("complete: %w", err),
		}
	}

	return domain.Summary{
		Status:    domain.SummaryFound,
		Title:     title,
		Text:      strings.TrimSpace(text),
		SourceURL: item.URL,
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return strings.TrimSpace(s[:i])
		}
		n++
	}

	return s
}
