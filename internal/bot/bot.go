// Package bot is the staff side Telegram bot: it announces submitted quotes to
// the admin chats and answers admin commands about them.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"privatize-quote/internal/config"
	"privatize-quote/internal/storage"
)

// Sender is the part of tgbotapi.BotAPI used to talk to chats.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// QuoteAdmin is the quote store as seen by admins.
type QuoteAdmin interface {
	GetQuote(ctx context.Context, reference string) (*storage.QuoteRecord, error)
	UpdateQuoteStatus(ctx context.Context, reference, status string) error
	GetQuoteStatistics(ctx context.Context) (*storage.QuoteStatistics, error)
	ExportAllQuotesToExcel(ctx context.Context, dir string) (string, error)
}

type Bot struct {
	api        *tgbotapi.BotAPI
	sender     Sender
	quotes     QuoteAdmin
	adminIDs   []int64
	reportsDir string
	logger     *zap.Logger
	mu         sync.Mutex
}

func New(cfg config.Telegram, reportsDir string, quotes QuoteAdmin, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	b := newBot(botAPI, cfg.AdminIDs, reportsDir, quotes, logger)
	b.api = botAPI
	return b, nil
}

func newBot(sender Sender, adminIDs []int64, reportsDir string, quotes QuoteAdmin, logger *zap.Logger) *Bot {
	return &Bot{
		sender:     sender,
		quotes:     quotes,
		adminIDs:   adminIDs,
		reportsDir: reportsDir,
		logger:     logger,
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot: no Telegram connection")
	}
	b.logger.Info("Starting admin bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down admin bot")
			return nil

		case update := <-updates:
			b.mu.Lock()
			if update.Message != nil {
				b.processMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.processCallback(ctx, update.CallbackQuery)
			}
			b.mu.Unlock()
		}
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if !msg.IsCommand() {
		return
	}
	b.handleAdminCommand(ctx, chatID, msg.Command(), strings.Fields(msg.CommandArguments()))
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", callback.Data))

	if _, err := b.sender.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	ref, status, ok := parseStatusCallback(callback.Data)
	if !ok {
		return
	}
	b.handleStatusUpdate(ctx, chatID, ref, status)
}

func (b *Bot) isAdmin(chatID int64) bool {
	for _, id := range b.adminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.sender.Send(msg); err != nil {
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
