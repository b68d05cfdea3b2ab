package pipeline

import (
	"booksummary/internal/completion"
	"booksummary/internal/domain"
	"booksummary/internal/extraction"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	msgNoTitle      = "Hmm... couldn't find a valid book title."
	msgMalformed    = "Hmm... couldn't parse the input properly."
	msgProviderErr  = "Completion provider error: %v"
	msgNotFound     = "Sorry, I couldn't find a summary for '%s'."
	msgSummaryError = "Couldn't summarize '%s': %v"
	msgUnexpected   = "Something went wrong: %v"
)

var ErrEmptyQuery = errors.New("query is empty")

type Extractor interface {
	Extract(ctx context.Context, query string) (domain.Book, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, title string) domain.Summary
}

type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeExtractionFailed
)

// Outcome is the terminal state of one run. Book and Summary are set only
// when Kind is OutcomeCompleted; Err only when it is OutcomeExtractionFailed.
type Outcome struct {
	Kind    OutcomeKind
	Book    domain.Book
	Summary domain.Summary
	Err     error
}

// NoEvidence reports a completed run that found nothing to summarize.
func (o Outcome) NoEvidence() bool {
	return o.Kind == OutcomeCompleted && o.Summary.Status == domain.SummaryNotFound
}

// Message renders the user-facing text for the final state of a run.
func (o Outcome) Message() string {
	if o.Kind == OutcomeExtractionFailed {
		return errorMessage(o.Err)
	}

	switch o.Summary.Status {
	case domain.SummaryFound:
		return o.Summary.Text
	case domain.SummaryNotFound:
		return fmt.Sprintf(msgNotFound, o.Book.Title)
	default:
		var providerErr *completion.ProviderError
		if errors.As(o.Summary.Err, &providerErr) {
			return fmt.Sprintf(msgProviderErr, providerErr)
		}
		return fmt.Sprintf(msgSummaryError, o.Book.Title, o.Summary.Err)
	}
}

func errorMessage(err error) string {
	var providerErr *completion.ProviderError

	switch {
	case errors.Is(err, extraction.ErrNoTitleFound):
		return msgNoTitle
	case errors.Is(err, extraction.ErrMalformedResponse):
		return msgMalformed
	case errors.As(err, &providerErr):
		return fmt.Sprintf(msgProviderErr, providerErr)
	default:
		return fmt.Sprintf(msgUnexpected, err)
	}
}

// Pipeline runs extraction followed by summarization.
type Pipeline struct {
	extractor  Extractor
	summarizer Summarizer
	log        *slog.Logger
}

func New(extractor Extractor, summarizer Summarizer, log *slog.Logger) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		summarizer: summarizer,
		log:        log,
	}
}

// Run executes one query. onExtracted, when not nil, is called with the
// extracted book before evidence gathering starts. Errors never escape Run:
// they are carried by the Outcome.
func (p *Pipeline) Run(
	ctx context.Context,
	query string,
	onExtracted func(ctx context.Context, book domain.Book),
) Outcome {
	log := p.log.With("runID", uuid.NewString())
	startedAt := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return Outcome{Kind: OutcomeExtractionFailed, Err: ErrEmptyQuery}
	}

	book, err := p.extractor.Extract(ctx, query)
	if err != nil {
		log.WarnContext(ctx, "Failed to extract book",
			"error", err,
			"duration", time.Since(startedAt))

		return Outcome{Kind: OutcomeExtractionFailed, Err: err}
	}

	log.InfoContext(ctx, "Book is extracted",
		"title", book.Title,
		"author", book.DisplayAuthor())

	if onExtracted != nil {
		onExtracted(ctx, book)
	}

	summary := p.summarizer.Summarize(ctx, book.Title)

	log.InfoContext(ctx, "Run is finished",
		"title", book.Title,
		"status", summary.Status.String(),
		"source", summary.SourceURL,
		"duration", time.Since(startedAt))

	return Outcome{Kind: OutcomeCompleted, Book: book, Summary: summary}
}
