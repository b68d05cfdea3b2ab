package web

import (
	"booksummary/internal/domain"
	"booksummary/internal/pipeline"
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestTimeout = 3 * time.Minute

	emptyInputMessage = "Please enter some text to analyze."
)

// Runner executes one book summary request.
type Runner interface {
	Run(
		ctx context.Context,
		query string,
		onExtracted func(ctx context.Context, book domain.Book),
	) pipeline.Outcome
}

type Server struct {
	app      *fiber.App
	pipeline Runner
	log      *slog.Logger

	// ctx outlives single requests so streamed runs can be stopped on
	// Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(runner Runner, log *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		ctx:    ctx,
		cancel: cancel,
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
		}),
		pipeline: runner,
		log:      log,
	}

	s.app.Use(s.logRequests)

	s.app.Get("/", s.handleForm)
	s.app.Post("/summary", s.handleSummaryPage)
	s.app.Post("/api/summary", s.handleSummaryAPI)
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	return s
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown cancels in-flight runs and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()

	reqID := c.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Locals("requestID", reqID)
	c.Set("X-Request-Id", reqID)

	err := c.Next()

	s.log.InfoContext(c.UserContext(), "Request is handled",
		"requestID", reqID,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latencyMs", time.Since(start).Milliseconds())

	return err
}

func (s *Server) handleForm(c *fiber.Ctx) error {
	return renderForm(c, formData{})
}

func renderForm(c *fiber.Ctx, data formData) error {
	c.Type("html", "utf-8")

	if err := templates.ExecuteTemplate(c, "form", data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	return nil
}

// handleSummaryPage streams the result page so the extracted title and
// author are visible while evidence is still being gathered.
func (s *Server) handleSummaryPage(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.FormValue("prompt"))
	if query == "" {
		return renderForm(c, formData{Error: emptyInputMessage})
	}

	reqID, _ := c.Locals("requestID").(string)
	log := s.log.With("requestID", reqID)

	c.Type("html", "utf-8")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
		defer cancel()

		write := func(name string, data any) {
			if err := templates.ExecuteTemplate(w, name, data); err != nil {
				log.ErrorContext(ctx, "Failed to execute template",
					"error", err,
					"template", name)

				return
			}
			if err := w.Flush(); err != nil {
				log.WarnContext(ctx, "Failed to flush response",
					"error", err,
					"template", name)

				// client is gone
				cancel()
			}
		}

		write("head", formData{Prompt: query})

		outcome := s.pipeline.Run(ctx, query, func(_ context.Context, book domain.Book) {
			write("extracted", book)
		})

		write("result", newResultData(outcome))
		write("foot", nil)
	})

	return nil
}

func newResultData(outcome pipeline.Outcome) resultData {
	found := outcome.Kind == pipeline.OutcomeCompleted && outcome.Summary.Status == domain.SummaryFound
	failed := outcome.Kind == pipeline.OutcomeExtractionFailed || outcome.Summary.Status == domain.SummaryFailed

	data := resultData{
		Found:   found,
		Error:   failed,
		Message: outcome.Message(),
	}
	if found {
		data.Text = outcome.Summary.Text
		data.SourceURL = outcome.Summary.SourceURL
	}

	return data
}

type summaryRequest struct {
	Prompt string `json:"prompt" form:"prompt"`
}

type summaryResponse struct {
	Status        string `json:"status"`
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	SummaryStatus string `json:"summaryStatus,omitempty"`
	Summary       string `json:"summary,omitempty"`
	SourceURL     string `json:"sourceUrl,omitempty"`
	Message       string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSummaryAPI(c *fiber.Ctx) error {
	var req summaryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	query := strings.TrimSpace(req.Prompt)
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: emptyInputMessage})
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	outcome := s.pipeline.Run(ctx, query, nil)

	if outcome.Kind == pipeline.OutcomeExtractionFailed {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(summaryResponse{
			Status:  "extraction_failed",
			Message: outcome.Message(),
		})
	}

	resp := summaryResponse{
		Status:        "completed",
		Title:         outcome.Book.Title,
		Author:        outcome.Book.Author,
		SummaryStatus: outcome.Summary.Status.String(),
		SourceURL:     outcome.Summary.SourceURL,
		Message:       outcome.Message(),
	}
	if outcome.Summary.Status == domain.SummaryFound {
		resp.Summary = outcome.Summary.Text
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
