package bot

import (
	"booksummary/internal/domain"
	"booksummary/internal/markdown"
	"booksummary/internal/pipeline"
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxSummaryRunes = 3500

const welcomeText = `📚 *Welcome to Book Summary\!*

Send me a message mentioning a book, for example:
_Can you summarize Dune by Frank Herbert?_

I will figure out the title and author, look for information on the web and reply with a short summary\.`

const emptyInputText = "Please enter some text to analyze\\."

func (b *Bot) handleMessage(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		return b.sendMessage(ctx, chatID, welcomeText)
	case text == "":
		return b.sendMessage(ctx, chatID, emptyInputText)
	default:
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleQuery(ctx, chatID, text)
		})
	}
}

func (b *Bot) handleQuery(ctx context.Context, chatID int64, text string) error {
	var errs []error

	outcome := b.pipeline.Run(ctx, text, func(ctx context.Context, book domain.Book) {
		if err := b.sendMessage(ctx, chatID, formatExtracted(book)); err != nil {
			errs = append(errs, fmt.Errorf("send extracted book: %w", err))
		}
	})

	if err := b.sendMessage(ctx, chatID, formatOutcome(outcome)); err != nil {
		errs = append(errs, fmt.Errorf("send outcome: %w", err))
	}

	return errors.Join(errs...)
}

func formatExtracted(book domain.Book) string {
	var sb strings.Builder

	sb.WriteString("*Extracted Title:* ")
	sb.WriteString(markdown.EscapeV2(book.Title))
	sb.WriteString("\n*Extracted Author:* ")
	sb.WriteString(markdown.EscapeV2(book.DisplayAuthor()))
	sb.WriteString("\n\n🔎 Looking on the web for you\\.\\.\\.")

	return sb.String()
}

func formatOutcome(outcome pipeline.Outcome) string {
	if outcome.Kind != pipeline.OutcomeCompleted || outcome.Summary.Status != domain.SummaryFound {
		return "✖️ " + markdown.EscapeV2(outcome.Message())
	}

	var sb strings.Builder

	sb.WriteString("📖 ")
	sb.WriteString(markdown.Bold("Book Summary"))
	sb.WriteString("\n\n")
	sb.WriteString(markdown.EscapeV2(truncate(outcome.Message(), maxSummaryRunes)))

	if source := outcome.Summary.SourceURL; source != "" {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("[Source](%s)", escapeLinkURL(source)))
	}

	return sb.String()
}

// escapeLinkURL escapes the characters MarkdownV2 reserves inside (...).
func escapeLinkURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(u)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
