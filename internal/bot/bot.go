package bot

import (
	"booksummary/internal/domain"
	"booksummary/internal/pipeline"
	"booksummary/internal/ratelimiter"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const updateProcessingTimeout = 3 * time.Minute

var errEmptyToken = errors.New("token is empty")

// Runner executes one book summary request.
type Runner interface {
	Run(
		ctx context.Context,
		query string,
		onExtracted func(ctx context.Context, book domain.Book),
	) pipeline.Outcome
}

type messageSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

type chatActionSender interface {
	SendChatAction(ctx context.Context, params *tgbot.SendChatActionParams) (bool, error)
}

// Bot answers Telegram messages with book summaries.
type Bot struct {
	api          *tgbot.Bot
	rateLimiter  *ratelimiter.RateLimiter
	sender       messageSender
	actions      chatActionSender
	pipeline     Runner
	allowedUsers []int64
	log          *slog.Logger
}

func New(
	token string,
	runner Runner,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errEmptyToken
	}

	b := &Bot{
		pipeline:     runner,
		allowedUsers: allowedUsers,
		log:          log,
	}

	api, err := tgbot.New(token, tgbot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.api = api
	b.rateLimiter = ratelimiter.New(api, log)
	b.sender = b.rateLimiter
	b.actions = api

	return b, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	b.handle(ctx, update)
}

func (b *Bot) handle(ctx context.Context, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	message := update.Message
	chatID := message.Chat.ID

	var userID int64
	var username string
	if message.From != nil {
		userID = message.From.ID
		username = message.From.Username
	}

	if !b.userAllowed(userID) {
		b.log.DebugContext(updateCtx, "User is not allowed",
			"userID", userID,
			"chatID", chatID,
			"username", username,
			"chatType", message.Chat.Type)

		return
	}

	if err := b.handleMessage(updateCtx, chatID, message.Text); err != nil {
		b.log.ErrorContext(updateCtx, "Failed to handle message",
			"error", err,
			"chatID", chatID,
			"userID", userID,
			"chatType", message.Chat.Type,
			"messageID", message.ID)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}
