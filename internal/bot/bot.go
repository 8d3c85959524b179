package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoeshop-bot/internal/config"
	"shoeshop-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	bot     *tgbotapi.BotAPI
	engine  *Engine
	storage *storage.PostgresStorage
	cfg     *config.Config
	logger  *zap.Logger
	locks   *chatLocks
}

func New(
	cfg *config.Config,
	pgStorage *storage.PostgresStorage,
	logger *zap.Logger,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	engine := NewEngine(
		pgStorage,
		pgStorage,
		pgStorage,
		NewTelegramGateway(botAPI),
		NewImageResolver(cfg.AppBaseURL),
		cfg.AdminIDs,
		logger,
	)

	return &Bot{
		bot:     botAPI,
		engine:  engine,
		storage: pgStorage,
		cfg:     cfg,
		logger:  logger,
		locks:   newChatLocks(),
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			b.bot.StopReceivingUpdates()
			return nil

		case update := <-updates:
			go b.processUpdate(ctx, update)
		}
	}
}

// processUpdate runs one inbound event to completion under the per-chat lock.
func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	var chatID int64
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
	default:
		return
	}

	lock := b.locks.get(chatID)
	lock.Lock()
	defer lock.Unlock()

	if b.rateLimited(ctx, chatID) {
		return
	}

	if update.Message != nil {
		b.processMessage(ctx, update.Message)
	} else {
		b.processCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) rateLimited(ctx context.Context, chatID int64) bool {
	limited, err := b.storage.CheckRateLimit(ctx, chatID, "events", b.cfg.RateLimitEvents, b.cfg.RateLimitWindow)
	if err != nil {
		b.logger.Warn("Rate limit check failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return false
	}
	if limited {
		b.sendError(chatID, msgRateLimited)
	}
	return limited
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	profile := profileOf(msg.From)

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, profile, msg.Command(), strings.Fields(msg.CommandArguments()))
		return
	}

	err := b.engine.HandleText(ctx, TextMessage{
		ChatID:  chatID,
		Profile: profile,
		Text:    msg.Text,
	})
	b.reportEngineError(chatID, err)
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", callback.Data))

	// Stop the client-side spinner regardless of the outcome.
	if _, err := b.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback query",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	selection, err := ParseSelection(chatID, profileOf(callback.From), callback.Data)
	if err != nil {
		b.logger.Warn("Malformed callback payload",
			zap.Int64("chat_id", chatID),
			zap.String("data", callback.Data),
			zap.Error(err))
		b.sendError(chatID, msgUseMenu)
		return
	}

	b.reportEngineError(chatID, b.engine.HandleSelection(ctx, selection))
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, profile Profile, command string, args []string) {
	switch command {
	case "start":
		b.reportEngineError(chatID, b.engine.Restart(ctx, chatID, profile))
	case "help":
		b.sendMessage(tgbotapi.NewMessage(chatID, msgHelp))
	case "stats", "export", "status":
		b.handleAdminCommand(ctx, chatID, command, args)
	default:
		b.sendError(chatID, msgUnknownCommand)
	}
}

// reportEngineError logs an engine outcome with the right severity. Expected
// per-event failures (retry prompts) are not errors of the process.
func (b *Bot) reportEngineError(chatID int64, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ErrUnexpectedEvent),
		errors.Is(err, ErrInvalidAssociation),
		errors.Is(err, storage.ErrNotFound):
		b.logger.Debug("Event rejected",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	case errors.Is(err, ErrSendFailed):
		b.logger.Warn("Outbound delivery failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	default:
		b.logger.Error("Failed to process event",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	b.sendMessage(msg)
}

func profileOf(from *tgbotapi.User) Profile {
	if from == nil {
		return Profile{}
	}
	return Profile{
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}
