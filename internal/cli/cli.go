package cli

import (
	"booksummary/internal/domain"
	"booksummary/internal/pipeline"
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
)

const (
	prompt        = "Enter your prompt (or 'quit' to exit): "
	quitCommand   = "quit"
	separatorSize = 50

	spinnerInterval = 100 * time.Millisecond
)

// Runner executes one book summary request.
type Runner interface {
	Run(
		ctx context.Context,
		query string,
		onExtracted func(ctx context.Context, book domain.Book),
	) pipeline.Outcome
}

// Progress is shown while a request is in flight.
type Progress interface {
	Start()
	Stop()
}

type noProgress struct{}

func (noProgress) Start() {}
func (noProgress) Stop()  {}

// NewSpinner returns a spinner on f. It stays silent when f is not a
// terminal.
func NewSpinner(f *os.File) Progress {
	s := spinner.New(spinner.CharSets[14], spinnerInterval, spinner.WithWriterFile(f))
	s.Suffix = " Working..."

	return s
}

// REPL reads one query per line and prints the result of each run.
type REPL struct {
	in       io.Reader
	out      io.Writer
	pipeline Runner
	progress Progress
	log      *slog.Logger
}

func New(
	runner Runner,
	in io.Reader,
	out io.Writer,
	progress Progress,
	log *slog.Logger,
) *REPL {
	if progress == nil {
		progress = noProgress{}
	}

	return &REPL{
		in:       in,
		out:      out,
		pipeline: runner,
		progress: progress,
		log:      log,
	}
}

// Run returns nil on "quit" or end of input.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := fmt.Fprint(r.out, prompt); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			_, _ = fmt.Fprintln(r.out)
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, quitCommand) {
			return nil
		}
		if line == "" {
			continue
		}

		if err := r.handle(ctx, line); err != nil {
			return err
		}
	}
}

func (r *REPL) handle(ctx context.Context, query string) error {
	w := &errWriter{w: r.out}

	r.progress.Start()
	outcome := r.pipeline.Run(ctx, query, func(_ context.Context, book domain.Book) {
		r.progress.Stop()

		w.printf("Extracted Title: %s\n", book.Title)
		w.printf("Extracted Author: %s\n", book.DisplayAuthor())
		w.printf("Looking on the web for you...\n")

		r.progress.Start()
	})
	r.progress.Stop()

	if outcome.Kind == pipeline.OutcomeExtractionFailed {
		w.printf("%s\n", outcome.Message())
		return w.err
	}

	w.printf("\nBook Summary:\n%s\n", outcome.Message())
	w.printf("\n%s\n\n", strings.Repeat("=", separatorSize))

	return w.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	if _, err := fmt.Fprintf(ew.w, format, args...); err != nil {
		ew.err = fmt.Errorf("write output: %w", err)
	}
}
