package bot

import (
	"fmt"
	"strings"
	"unicode"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/storage"
)

var variantLabels = map[quote.ServiceVariant]string{
	quote.FixedVenue:    "Privatisation du restaurant",
	quote.MobileTrailer: "Food truck à domicile",
}

func NormalizePhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	if strings.HasPrefix(cleaned, "33") && len(cleaned) == 11 {
		return "+" + cleaned
	}
	if strings.HasPrefix(cleaned, "0") && len(cleaned) == 10 {
		return "+33" + cleaned[1:]
	}
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return "+" + cleaned
	}
	return cleaned
}

// FormatPhoneNumber renders French numbers as "06 12 34 56 78".
func FormatPhoneNumber(phone string) string {
	n := NormalizePhoneNumber(phone)
	if !strings.HasPrefix(n, "+33") || len(n) != 12 {
		return phone
	}
	local := "0" + n[3:]
	return fmt.Sprintf("%s %s %s %s %s", local[0:2], local[2:4], local[4:6], local[6:8], local[8:10])
}

func FormatQuoteNotification(s quote.Submission) string {
	m, bd := s.Selection, s.Breakdown

	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 Nouveau devis %s\n\n", s.Reference)
	fmt.Fprintf(&sb, "Formule : %s\n", variantLabel(m.Variant))
	fmt.Fprintf(&sb, "Date : %s\n", m.EventDate.Format("02.01.2006"))
	fmt.Fprintf(&sb, "Invités : %d\n", m.GuestCount)
	fmt.Fprintf(&sb, "Durée : %d h\n", m.DurationHours)
	if bd.Delivery != nil {
		fmt.Fprintf(&sb, "Livraison : %s (%.0f km)\n", bd.Delivery.PostalCode, bd.Delivery.DistanceKm)
	}
	sb.WriteString("──────────────────\n")
	fmt.Fprintf(&sb, "Forfait : %s €\n", bd.BasePrice)
	for _, c := range bd.Supplements {
		fmt.Fprintf(&sb, "- %s : %s €\n", c.Label, c.Amount)
	}
	for _, li := range bd.LineItems {
		fmt.Fprintf(&sb, "- %d × %s : %s €\n", li.Quantity, li.Label, li.Total)
	}
	for _, c := range bd.AddOns {
		fmt.Fprintf(&sb, "- %s : %s €\n", c.Label, c.Amount)
	}
	fmt.Fprintf(&sb, "Total : %s €\n", bd.GrandTotal)
	sb.WriteString("──────────────────\n")
	fmt.Fprintf(&sb, "Contact : %s %s\n", m.Contact.FirstName, m.Contact.LastName)
	fmt.Fprintf(&sb, "Email : %s\n", m.Contact.Email)
	fmt.Fprintf(&sb, "Téléphone : %s", FormatPhoneNumber(m.Contact.Phone))
	if m.Contact.Message != "" {
		fmt.Fprintf(&sb, "\nMessage : %s", m.Contact.Message)
	}
	return sb.String()
}

func FormatStatistics(stats *storage.QuoteStatistics) string {
	return fmt.Sprintf(
		"📊 Statistiques des devis\n\n"+
			"📌 Total : %d (%s €)\n"+
			"📅 30 derniers jours : %d (%s €)\n\n"+
			"📌 Par statut :\n"+
			"🆕 Reçus : %d\n"+
			"📞 Contactés : %d\n"+
			"✅ Confirmés : %d\n"+
			"❌ Refusés : %d",
		stats.TotalQuotes, stats.TotalAmount,
		stats.MonthQuotes, stats.MonthAmount,
		stats.StatusCounts[storage.StatusSubmitted],
		stats.StatusCounts[storage.StatusContacted],
		stats.StatusCounts[storage.StatusConfirmed],
		stats.StatusCounts[storage.StatusDeclined],
	)
}

func variantLabel(v quote.ServiceVariant) string {
	if l, ok := variantLabels[v]; ok {
		return l
	}
	return string(v)
}

func statusCallback(reference, status string) string {
	return fmt.Sprintf("status:%s:%s", reference, status)
}

func parseStatusCallback(data string) (reference, status string, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "status" || parts[1] == "" {
		return "", "", false
	}
	if !storage.ValidStatus(parts[2]) {
		return "", "", false
	}
	return parts[1], parts[2], true
}
