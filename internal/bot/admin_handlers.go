package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/storage"
)

const helpText = `Commandes disponibles :
/stats - statistiques des devis
/export - tous les devis au format Excel
/export <référence> - un devis au format Excel
/status <référence> <statut> - changer le statut (submitted, contacted, confirmed, declined)`

var statusLabels = map[string]string{
	storage.StatusSubmitted: "Reçu",
	storage.StatusContacted: "Client contacté",
	storage.StatusConfirmed: "Confirmé",
	storage.StatusDeclined:  "Refusé",
}

func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, cmd string, args []string) {
	if !b.isAdmin(chatID) {
		b.logger.Warn("Ignoring command from non-admin chat",
			zap.Int64("chat_id", chatID),
			zap.String("command", cmd))
		return
	}

	switch cmd {
	case "start", "help":
		b.sendMessage(tgbotapi.NewMessage(chatID, helpText))
	case "export":
		if len(args) == 0 {
			b.handleExportAllQuotes(ctx, chatID)
		} else {
			b.handleExportSingleQuote(ctx, chatID, strings.ToUpper(args[0]))
		}
	case "stats":
		b.handleQuoteStats(ctx, chatID)
	case "status":
		if len(args) < 2 {
			b.sendError(chatID, "Utilisation : /status <référence> <statut>")
			return
		}
		b.handleStatusUpdate(ctx, chatID, strings.ToUpper(args[0]), strings.ToLower(args[1]))
	default:
		b.sendError(chatID, "Commande inconnue. /help pour la liste.")
	}
}

func (b *Bot) handleStatusUpdate(ctx context.Context, chatID int64, reference, newStatus string) {
	if !b.isAdmin(chatID) {
		return
	}
	if !storage.ValidStatus(newStatus) {
		b.sendError(chatID, "Statut invalide. Valeurs possibles : submitted, contacted, confirmed, declined")
		return
	}

	err := b.quotes.UpdateQuoteStatus(ctx, reference, newStatus)
	if errors.Is(err, storage.ErrQuoteNotFound) {
		b.sendError(chatID, fmt.Sprintf("Devis %s introuvable", reference))
		return
	}
	if err != nil {
		b.logger.Error("Failed to update quote status",
			zap.String("reference", reference),
			zap.String("status", newStatus),
			zap.Error(err))
		b.sendError(chatID, "Erreur lors de la mise à jour du statut")
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ Statut du devis %s : %s", reference, statusLabels[newStatus])))
}

func (b *Bot) handleQuoteStats(ctx context.Context, chatID int64) {
	stats, err := b.quotes.GetQuoteStatistics(ctx)
	if err != nil {
		b.logger.Error("Failed to get quote statistics", zap.Error(err))
		b.sendError(chatID, "Erreur lors du calcul des statistiques")
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, FormatStatistics(stats)))
}

func (b *Bot) handleExportAllQuotes(ctx context.Context, chatID int64) {
	path, err := b.quotes.ExportAllQuotesToExcel(ctx, b.reportsDir)
	if err != nil {
		b.logger.Error("Failed to export all quotes", zap.Error(err))
		b.sendError(chatID, "Échec de l'export")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = "📊 Export de tous les devis"
	if _, err := b.sender.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file", zap.Error(err))
		b.sendError(chatID, "Échec de l'envoi du fichier")
	}
}

func (b *Bot) handleExportSingleQuote(ctx context.Context, chatID int64, reference string) {
	rec, err := b.quotes.GetQuote(ctx, reference)
	if err != nil {
		b.logger.Error("Failed to get quote",
			zap.String("reference", reference),
			zap.Error(err))
		b.sendError(chatID, fmt.Sprintf("Devis %s introuvable", reference))
		return
	}

	var (
		sel quote.SelectionModel
		bd  quote.PriceBreakdown
	)
	if err := rec.Selection.Unmarshal(&sel); err != nil {
		b.logger.Error("Stored selection is unreadable", zap.String("reference", reference), zap.Error(err))
		b.sendError(chatID, "Devis illisible")
		return
	}
	if err := rec.Breakdown.Unmarshal(&bd); err != nil {
		b.logger.Error("Stored breakdown is unreadable", zap.String("reference", reference), zap.Error(err))
		b.sendError(chatID, "Devis illisible")
		return
	}

	path, err := storage.ExportQuoteToExcel(b.reportsDir, rec.Reference, &sel, &bd)
	if err != nil {
		b.logger.Error("Failed to export quote",
			zap.String("reference", reference),
			zap.Error(err))
		b.sendError(chatID, "Échec de l'export")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("📊 Devis %s (%s)", rec.Reference, statusLabels[rec.Status])
	if _, err := b.sender.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file", zap.Error(err))
		b.sendError(chatID, "Échec de l'envoi du fichier")
	}
}
