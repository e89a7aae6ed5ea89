package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/storage"
)

// NotifyQuote sends the quote summary with status buttons, then the
// spreadsheet, to every admin chat. Failures are logged only.
func (b *Bot) NotifyQuote(ctx context.Context, s quote.Submission) {
	if len(b.adminIDs) == 0 {
		b.logger.Warn("Admin notifications disabled - no admin IDs configured")
		return
	}

	for _, adminID := range b.adminIDs {
		if adminID != 0 {
			b.sendAdminNotification(ctx, adminID, s)
		}
	}
}

func (b *Bot) sendAdminNotification(ctx context.Context, chatID int64, s quote.Submission) {
	if err := ctx.Err(); err != nil {
		b.logger.Warn("Skipping admin notification", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatQuoteNotification(s))
	msg.ReplyMarkup = statusKeyboard(s.Reference)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send quote notification",
			zap.Int64("chat_id", chatID),
			zap.String("reference", s.Reference),
			zap.Error(err))
		return
	}

	if s.ReportPath == "" {
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(s.ReportPath))
	doc.Caption = fmt.Sprintf("📊 Détail du devis %s", s.Reference)
	if _, err := b.sender.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file to admin",
			zap.Int64("chat_id", chatID),
			zap.String("reference", s.Reference),
			zap.Error(err))
	}
}

func statusKeyboard(reference string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📞 Contacté", statusCallback(reference, storage.StatusContacted)),
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirmé", statusCallback(reference, storage.StatusConfirmed)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Refusé", statusCallback(reference, storage.StatusDeclined)),
		),
	)
}
