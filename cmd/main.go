package main

import (
	"booksummary/internal/bot"
	"booksummary/internal/cli"
	"booksummary/internal/completion"
	"booksummary/internal/config"
	"booksummary/internal/evidence"
	"booksummary/internal/extraction"
	"booksummary/internal/pipeline"
	"booksummary/internal/summarization"
	"booksummary/internal/web"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
)

const (
	modeCLI      = "cli"
	modeWeb      = "web"
	modeTelegram = "telegram"

	shutdownTimeout = 10 * time.Second
)

// CLIFlags selects the user interface; everything else comes from the
// environment.
type CLIFlags struct {
	Mode    string `enum:"cli,web,telegram" default:"cli"  help:"User interface: cli, web or telegram."`
	EnvFile string `type:"path"             default:".env" help:"Optional dotenv file."`
	Verbose bool   `short:"v"               help:"Log debug messages."`
}

func main() {
	var flags CLIFlags

	kong.Parse(&flags,
		kong.Name("booksummary"),
		kong.Description("Summarize a book mentioned in free text using web evidence and a language model."))

	os.Exit(run(flags))
}

func run(flags CLIFlags) int {
	log := newLogger(flags.Mode, flags.Verbose)
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loaded, err := config.LoadDotEnv(flags.EnvFile)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load env file",
			"error", err,
			"path", flags.EnvFile)

		return 1
	}
	if loaded {
		log.DebugContext(ctx, "Env file is loaded",
			"path", flags.EnvFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err,
			"missingCredential", errors.Is(err, config.ErrMissingCredential))

		return 1
	}

	p, err := newPipeline(cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize pipeline",
			"error", err,
			"provider", cfg.Provider)

		return 1
	}
	log.InfoContext(ctx, "Pipeline is initialized",
		"provider", cfg.Provider,
		"searchEngine", cfg.SearchEngine,
		"maxEvidence", cfg.MaxEvidence)

	switch flags.Mode {
	case modeWeb:
		err = runWeb(ctx, cfg, p, log)
	case modeTelegram:
		err = runTelegram(ctx, cfg, p, log)
	default:
		err = cli.New(p, os.Stdin, os.Stdout, cli.NewSpinner(os.Stderr), log).Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	if err != nil {
		log.ErrorContext(ctx, "Exiting with error",
			"error", err,
			"mode", flags.Mode,
			"uptimeSeconds", time.Since(start).Seconds())

		return 1
	}

	log.InfoContext(ctx, "Exiting...",
		"mode", flags.Mode,
		"uptimeSeconds", time.Since(start).Seconds())

	return 0
}

func newLogger(mode string, verbose bool) *slog.Logger {
	if mode == modeCLI {
		level := charmlog.WarnLevel
		if verbose {
			level = charmlog.DebugLevel
		}

		return slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			ReportTimestamp: true,
			Level:           level,
		}))
	}

	opts := &slog.HandlerOptions{}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newPipeline(cfg config.Config, log *slog.Logger) (*pipeline.Pipeline, error) {
	client, err := completion.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	provider := evidence.NewFromConfig(cfg, log)

	return pipeline.New(
		extraction.New(client),
		summarization.New(provider, client, cfg.MaxEvidence, log),
		log,
	), nil
}

func runWeb(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, log *slog.Logger) error {
	server := web.NewServer(p, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.ListenAddr)
	}()
	log.InfoContext(ctx, "Web server is started",
		"addr", cfg.ListenAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutdown signal is received",
		"mode", modeWeb)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.InfoContext(shutdownCtx, "Web server is stopped")

	return nil
}

func runTelegram(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, log *slog.Logger) error {
	botInst, err := bot.New(cfg.TelegramToken, p, cfg.AllowedUsers, log)
	if err != nil {
		return fmt.Errorf("initialize bot: %w", err)
	}
	defer botInst.Stop()

	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	botInst.Start(ctx)

	log.InfoContext(ctx, "Bot is stopped")

	return nil
}
