package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"privatize-quote/internal/quote"
)

const (
	quoteSheet  = "Quote"
	quotesSheet = "Quotes"
)

// ExportQuoteToExcel writes one submitted quote to dir/quote_<reference>.xlsx
// and returns the file path. Amounts are written in currency units.
func ExportQuoteToExcel(dir, reference string, m *quote.SelectionModel, b *quote.PriceBreakdown) (string, error) {
	const operation = "storage.ExportQuoteToExcel"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), quoteSheet); err != nil {
		return "", fmt.Errorf("%s: failed to name sheet: %w", operation, err)
	}

	w := &sheetWriter{f: f, sheet: quoteSheet, row: 1}

	w.pair("Reference", reference)
	w.pair("Service", string(m.Variant))
	w.pair("Event date", m.EventDate.Format("2006-01-02"))
	w.pair("Duration (h)", m.DurationHours)
	w.pair("Guests", m.GuestCount)
	if m.PostalCode != "" {
		w.pair("Postal code", m.PostalCode)
	}
	w.pair("Contact", fmt.Sprintf("%s %s", m.Contact.FirstName, m.Contact.LastName))
	w.pair("Email", m.Contact.Email)
	w.pair("Phone", m.Contact.Phone)
	if m.Contact.Message != "" {
		w.pair("Message", m.Contact.Message)
	}
	w.row++

	w.heading("Item", "Quantity", "Unit price", "Total")
	w.line("Base package", 1, b.BasePrice, b.BasePrice)
	for _, li := range b.LineItems {
		w.line(li.Label, li.Quantity, li.UnitPrice, li.Total)
		for _, oc := range li.Options {
			w.line("  "+oc.Label, oc.Quantity, oc.UnitPrice, oc.Total)
		}
	}
	w.row++

	if len(b.Supplements) > 0 {
		w.heading("Supplement", "", "", "Amount")
		for _, c := range b.Supplements {
			w.charge(c)
		}
		w.row++
	}
	if len(b.AddOns) > 0 {
		w.heading("Add-on", "", "", "Amount")
		for _, c := range b.AddOns {
			w.charge(c)
		}
		w.row++
	}

	w.total("Supplements total", b.SupplementsTotal)
	w.total("Items total", b.LineItemsTotal)
	w.total("Add-ons total", b.AddOnTotal)
	w.total("Grand total", b.GrandTotal)

	if err := f.SetColWidth(quoteSheet, "A", "A", 36); err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("quote_%s.xlsx", reference))
	if err := save(f, dir, path); err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	return path, nil
}

// ExportAllQuotesToExcel writes every stored quote, newest first, to
// dir/quotes_<timestamp>.xlsx.
func (s *PostgresStorage) ExportAllQuotesToExcel(ctx context.Context, dir string) (string, error) {
	const operation = "storage.ExportAllQuotesToExcel"
	const query = `
        SELECT id, reference, variant, event_date, guest_count, email,
               grand_total, selection, breakdown, status, created_at
        FROM quotes
        ORDER BY created_at DESC
    `

	var records []QuoteRecord
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return "", fmt.Errorf("%s: failed to fetch quotes: %w", operation, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("quotes_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := writeQuotesSheet(records, dir, path); err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	return path, nil
}

func writeQuotesSheet(records []QuoteRecord, dir, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), quotesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []string{
		"Reference", "Service", "Event date", "Guests", "Email",
		"Grand total", "Status", "Created at",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(quotesSheet, cell, header)
	}

	for row, r := range records {
		data := []interface{}{
			r.Reference,
			r.Variant,
			r.EventDate.Format("2006-01-02"),
			r.GuestCount,
			r.Email,
			r.GrandTotal.Float64(),
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(quotesSheet, cell, value)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(quotesSheet, "A1", last, style)
	}

	return save(f, dir, path)
}

func save(f *excelize.File, dir, path string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
}

func (w *sheetWriter) cell(col int) string {
	name, _ := excelize.CoordinatesToCellName(col, w.row)
	return name
}

func (w *sheetWriter) boldStyle() int {
	if w.bold == 0 {
		w.bold, _ = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	}
	return w.bold
}

func (w *sheetWriter) pair(label string, value interface{}) {
	w.f.SetCellValue(w.sheet, w.cell(1), label)
	w.f.SetCellValue(w.sheet, w.cell(2), value)
	w.f.SetCellStyle(w.sheet, w.cell(1), w.cell(1), w.boldStyle())
	w.row++
}

func (w *sheetWriter) heading(cols ...string) {
	for i, c := range cols {
		w.f.SetCellValue(w.sheet, w.cell(i+1), c)
	}
	w.f.SetCellStyle(w.sheet, w.cell(1), w.cell(len(cols)), w.boldStyle())
	w.row++
}

func (w *sheetWriter) line(label string, qty int, unit, total quote.Money) {
	w.f.SetCellValue(w.sheet, w.cell(1), label)
	w.f.SetCellValue(w.sheet, w.cell(2), qty)
	w.f.SetCellValue(w.sheet, w.cell(3), unit.Float64())
	w.f.SetCellValue(w.sheet, w.cell(4), total.Float64())
	w.row++
}

func (w *sheetWriter) charge(c quote.Charge) {
	w.f.SetCellValue(w.sheet, w.cell(1), c.Label)
	w.f.SetCellValue(w.sheet, w.cell(4), c.Amount.Float64())
	w.row++
}

func (w *sheetWriter) total(label string, amount quote.Money) {
	w.f.SetCellValue(w.sheet, w.cell(1), label)
	w.f.SetCellValue(w.sheet, w.cell(4), amount.Float64())
	w.f.SetCellStyle(w.sheet, w.cell(1), w.cell(4), w.boldStyle())
	w.row++
}
