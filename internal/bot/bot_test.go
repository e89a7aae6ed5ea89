package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"privatize-quote/internal/pricing"
	"privatize-quote/internal/quote"
	"privatize-quote/internal/quote/quotetest"
	"privatize-quote/internal/storage"
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) documents() []tgbotapi.DocumentConfig {
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

type fakeQuotes struct {
	records  map[string]*storage.QuoteRecord
	statuses map[string]string
	stats    *storage.QuoteStatistics
	dir      string
}

func (f *fakeQuotes) GetQuote(_ context.Context, ref string) (*storage.QuoteRecord, error) {
	rec, ok := f.records[ref]
	if !ok {
		return nil, fmt.Errorf("get: %w", storage.ErrQuoteNotFound)
	}
	return rec, nil
}

func (f *fakeQuotes) UpdateQuoteStatus(_ context.Context, ref, status string) error {
	if _, ok := f.records[ref]; !ok {
		return fmt.Errorf("update: %w", storage.ErrQuoteNotFound)
	}
	f.statuses[ref] = status
	return nil
}

func (f *fakeQuotes) GetQuoteStatistics(context.Context) (*storage.QuoteStatistics, error) {
	if f.stats == nil {
		return nil, errors.New("db down")
	}
	return f.stats, nil
}

func (f *fakeQuotes) ExportAllQuotesToExcel(_ context.Context, dir string) (string, error) {
	return filepath.Join(dir, "all.xlsx"), nil
}

const adminChat = 1001

func submission(t *testing.T) quote.Submission {
	t.Helper()
	m := quotetest.BaseModel(quote.MobileTrailer)
	m.Contact = quote.Contact{FirstName: "Jeanne", LastName: "Martin", Email: "jeanne@example.org", Phone: "06 12 34 56 78"}
	if err := m.SetLine(quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg, SizeLiters: 20}, 1); err != nil {
		t.Fatal(err)
	}
	b, err := pricing.Calculate(m, quotetest.Config(), quotetest.Catalog(), &quote.Distance{PostalCode: "69003", Km: 12})
	if err != nil {
		t.Fatal(err)
	}
	return quote.Submission{Reference: "Q-1A2B3C4D", Selection: m, Breakdown: b, ReportPath: "/tmp/quote.xlsx"}
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *fakeQuotes) {
	t.Helper()
	sender := &fakeSender{}
	quotes := &fakeQuotes{records: map[string]*storage.QuoteRecord{}, statuses: map[string]string{}}
	return newBot(sender, []int64{adminChat, 0}, t.TempDir(), quotes, zap.NewNop()), sender, quotes
}

func TestNotifyQuote(t *testing.T) {
	b, sender, _ := newTestBot(t)
	s := submission(t)

	b.NotifyQuote(context.Background(), s)

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages, want a summary and a document", len(sender.sent))
	}
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("first message is %T", sender.sent[0])
	}
	if msg.ChatID != adminChat {
		t.Errorf("ChatID = %d", msg.ChatID)
	}
	for _, want := range []string{"Q-1A2B3C4D", "Food truck", "Bière blonde 20 L", "06 12 34 56 78", "Total : " + s.Breakdown.GrandTotal.String()} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("summary misses %q:\n%s", want, msg.Text)
		}
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard[0]) != 3 {
		t.Fatalf("ReplyMarkup = %#v", msg.ReplyMarkup)
	}
	if data := *kb.InlineKeyboard[0][1].CallbackData; data != "status:Q-1A2B3C4D:confirmed" {
		t.Errorf("callback data = %s", data)
	}
	if docs := sender.documents(); len(docs) != 1 || docs[0].Caption == "" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestNotifyQuote_NoAdmins(t *testing.T) {
	sender := &fakeSender{}
	b := newBot(sender, nil, t.TempDir(), &fakeQuotes{}, zap.NewNop())
	b.NotifyQuote(context.Background(), submission(t))
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages with no admins", len(sender.sent))
	}
}

func TestHandleAdminCommand(t *testing.T) {
	tests := []struct {
		name       string
		chatID     int64
		cmd        string
		args       []string
		wantText   string
		wantStatus string
		wantDocs   int
	}{
		{name: "non admin is ignored", chatID: 42, cmd: "stats"},
		{name: "help", chatID: adminChat, cmd: "help", wantText: "/status"},
		{name: "stats", chatID: adminChat, cmd: "stats", wantText: "Total : 3 (1200.00 €)"},
		{name: "status", chatID: adminChat, cmd: "status", args: []string{"q-0000aaaa", "CONTACTED"}, wantText: "Client contacté", wantStatus: storage.StatusContacted},
		{name: "status usage", chatID: adminChat, cmd: "status", args: []string{"Q-0000AAAA"}, wantText: "Utilisation"},
		{name: "bad status", chatID: adminChat, cmd: "status", args: []string{"Q-0000AAAA", "paid"}, wantText: "Statut invalide"},
		{name: "unknown quote", chatID: adminChat, cmd: "status", args: []string{"Q-FFFFFFFF", "declined"}, wantText: "introuvable"},
		{name: "export all", chatID: adminChat, cmd: "export", wantDocs: 1},
		{name: "export one", chatID: adminChat, cmd: "export", args: []string{"Q-0000AAAA"}, wantDocs: 1},
		{name: "unknown command", chatID: adminChat, cmd: "reboot", wantText: "Commande inconnue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, sender, quotes := newTestBot(t)
			quotes.stats = &storage.QuoteStatistics{
				TotalQuotes: 3, TotalAmount: quote.Units(1200),
				StatusCounts: map[string]int{storage.StatusSubmitted: 3},
			}
			s := submission(t)
			sel, _ := json.Marshal(s.Selection)
			bd, _ := json.Marshal(s.Breakdown)
			quotes.records["Q-0000AAAA"] = &storage.QuoteRecord{
				Reference: "Q-0000AAAA", Status: storage.StatusSubmitted, Selection: sel, Breakdown: bd,
			}

			b.handleAdminCommand(context.Background(), tt.chatID, tt.cmd, tt.args)

			texts := strings.Join(sender.texts(), "\n")
			if tt.wantText == "" && tt.wantDocs == 0 && len(sender.sent) != 0 {
				t.Errorf("expected silence, got %q", texts)
			}
			if tt.wantText != "" && !strings.Contains(texts, tt.wantText) {
				t.Errorf("replies = %q, want %q", texts, tt.wantText)
			}
			if tt.wantStatus != "" && quotes.statuses["Q-0000AAAA"] != tt.wantStatus {
				t.Errorf("status = %q, want %q", quotes.statuses["Q-0000AAAA"], tt.wantStatus)
			}
			if got := len(sender.documents()); got != tt.wantDocs {
				t.Errorf("documents = %d, want %d (replies %q)", got, tt.wantDocs, texts)
			}
		})
	}
}

func TestProcessCallback(t *testing.T) {
	b, sender, quotes := newTestBot(t)
	quotes.records["Q-0000AAAA"] = &storage.QuoteRecord{Reference: "Q-0000AAAA"}

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "status:Q-0000AAAA:declined",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: adminChat}},
	}
	b.processCallback(context.Background(), cb)

	if quotes.statuses["Q-0000AAAA"] != storage.StatusDeclined {
		t.Errorf("status = %q, want declined", quotes.statuses["Q-0000AAAA"])
	}
	if len(sender.requests) != 1 {
		t.Errorf("callback not answered")
	}
}

func TestParseStatusCallback(t *testing.T) {
	tests := []struct {
		data    string
		wantRef string
		wantOK  bool
	}{
		{"status:Q-1:confirmed", "Q-1", true},
		{"status::confirmed", "", false},
		{"status:Q-1:paid", "", false},
		{"texture:12", "", false},
	}
	for _, tt := range tests {
		ref, _, ok := parseStatusCallback(tt.data)
		if ref != tt.wantRef || ok != tt.wantOK {
			t.Errorf("parseStatusCallback(%q) = %q, %v", tt.data, ref, ok)
		}
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0612345678", "06 12 34 56 78"},
		{"+33 6 12 34 56 78", "06 12 34 56 78"},
		{"06.12.34.56.78", "06 12 34 56 78"},
		{"+44 20 7946 0958", "+44 20 7946 0958"},
	}
	for _, tt := range tests {
		if got := FormatPhoneNumber(tt.in); got != tt.want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
