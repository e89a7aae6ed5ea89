package pricing

import (
	"errors"
	"testing"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/quote/quotetest"
)

func TestCalculate_FixedVenueDurationOnly(t *testing.T) {
	cfg := quotetest.Config()
	m := quote.NewSelectionModel(quote.FixedVenue)
	m.GuestCount = 10
	m.DurationHours = 4

	b, err := Calculate(m, cfg, quotetest.Catalog(), nil)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if got := supplement(b, quote.ChargeDuration); got != quote.Units(100) {
		t.Errorf("duration supplement = %s, want 100.00", got)
	}
	if b.GrandTotal != quote.Units(400) {
		t.Errorf("GrandTotal = %s, want 400.00", b.GrandTotal)
	}
	if len(b.LineItems) != 0 || len(b.AddOns) != 0 {
		t.Errorf("expected no line items or add-ons, got %d and %d", len(b.LineItems), len(b.AddOns))
	}
	if b.Delivery != nil {
		t.Errorf("fixed venue must not carry a delivery quote")
	}
}

func TestCalculate_MobileTrailerGuestsAndDelivery(t *testing.T) {
	cfg := quotetest.Config()
	m := quotetest.BaseModel(quote.MobileTrailer)
	m.GuestCount = 60
	m.DurationHours = 4

	b, err := Calculate(m, cfg, quotetest.Catalog(), &quote.Distance{PostalCode: "69003", Km: 45})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	tests := []struct {
		kind quote.ChargeKind
		want quote.Money
	}{
		{quote.ChargeDuration, quote.Units(80)},
		{quote.ChargeGuests, quote.Units(150)},
		{quote.ChargeDelivery, quote.Units(20)},
	}
	for _, tt := range tests {
		if got := supplement(b, tt.kind); got != tt.want {
			t.Errorf("%s supplement = %s, want %s", tt.kind, got, tt.want)
		}
	}

	want := quote.Sum(quote.Units(500), quote.Units(80), quote.Units(150), quote.Units(20))
	if b.GrandTotal != want {
		t.Errorf("GrandTotal = %s, want %s", b.GrandTotal, want)
	}
	if b.Delivery == nil || b.Delivery.Tier != 1 || b.Delivery.PostalCode != "69003" {
		t.Errorf("Delivery = %+v, want tier 1 for 69003", b.Delivery)
	}
}

func TestCalculate_NotServed(t *testing.T) {
	m := quotetest.BaseModel(quote.MobileTrailer)

	b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), &quote.Distance{PostalCode: "13001", Km: 180})
	if b != nil {
		t.Fatalf("expected no breakdown, got %+v", b)
	}
	var ns *quote.NotServedError
	if !errors.As(err, &ns) {
		t.Fatalf("error = %v, want *quote.NotServedError", err)
	}
	if ns.PostalCode != "13001" || ns.DistanceKm != 180 || ns.MaxDistanceKm != 150 {
		t.Errorf("NotServedError = %+v", ns)
	}
}

func TestCalculate_GuestSupplementThreshold(t *testing.T) {
	tests := []struct {
		name    string
		variant quote.ServiceVariant
		guests  int
		want    quote.Money
	}{
		{"trailer at threshold", quote.MobileTrailer, 50, quote.Zero},
		{"trailer above threshold", quote.MobileTrailer, 51, quote.Units(150)},
		{"trailer far above threshold", quote.MobileTrailer, 140, quote.Units(150)},
		{"fixed venue never", quote.FixedVenue, 40, quote.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := quotetest.Config()
			cfg.FixedVenue.StaffThreshold = 10
			cfg.FixedVenue.StaffSupplement = quote.Units(99)

			m := quotetest.BaseModel(tt.variant)
			m.GuestCount = tt.guests
			b, err := Calculate(m, cfg, quotetest.Catalog(), nil)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if got := supplement(b, quote.ChargeGuests); got != tt.want {
				t.Errorf("guest supplement = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCalculate_LineTotals(t *testing.T) {
	m := quotetest.BaseModel(quote.MobileTrailer)
	m.SetSignatureDishType("classic")
	mustSet(t, m.SetLine(quote.ProductRef{Category: quote.CategorySignatureDish, ID: quotetest.BurgerClassic}, 30))
	mustSet(t, m.SetLine(quote.ProductRef{Category: quote.CategoryAccompaniment, ID: quotetest.Fries}, 10))
	mustSet(t, m.SetOption(quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.Bearnaise}, 4))
	mustSet(t, m.SetOption(quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.ChefSauce}, 3))
	mustSet(t, m.SetSubOption(quote.SubOptionRef{ProductID: quotetest.Fries, OptionID: quotetest.Bearnaise, SubOptionID: quotetest.ExtraPortion}, 2))
	mustSet(t, m.SetLine(quote.ProductRef{Category: quote.CategoryBeverageSize, ID: quotetest.Lemonade33cl}, 12))
	mustSet(t, m.SetLine(quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg, SizeLiters: 30}, 1))

	b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	tests := []struct {
		ref   quote.ProductRef
		unit  quote.Money
		total quote.Money
		label string
	}{
		{
			ref:   quote.ProductRef{Category: quote.CategorySignatureDish, ID: quotetest.BurgerClassic},
			unit:  quote.Cents(1450),
			total: quote.Cents(43500),
			label: "Burger classique",
		},
		{
			// 10 x 3.50 + 4 x 0.80 + 3 x 1.00 + 2 x 0.50
			ref:   quote.ProductRef{Category: quote.CategoryAccompaniment, ID: quotetest.Fries},
			unit:  quote.Cents(350),
			total: quote.Cents(3500 + 320 + 300 + 100),
			label: "Frites",
		},
		{
			ref:   quote.ProductRef{Category: quote.CategoryBeverageSize, ID: quotetest.Lemonade33cl},
			unit:  quote.Cents(250),
			total: quote.Units(30),
			label: "Limonade 33 cl",
		},
		{
			ref:   quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg, SizeLiters: 30},
			unit:  quote.Units(200),
			total: quote.Units(200),
			label: "Bière blonde 30 L",
		},
	}
	for _, tt := range tests {
		li, ok := b.LineItem(tt.ref)
		if !ok {
			t.Errorf("line %s missing from breakdown", tt.ref)
			continue
		}
		if li.UnitPrice != tt.unit || li.Total != tt.total || li.Label != tt.label {
			t.Errorf("line %s = {%s %s %q}, want {%s %s %q}",
				tt.ref, li.UnitPrice, li.Total, li.Label, tt.unit, tt.total, tt.label)
		}
	}

	fries, _ := b.LineItem(quote.ProductRef{Category: quote.CategoryAccompaniment, ID: quotetest.Fries})
	if len(fries.Options) != 3 {
		t.Errorf("fries options = %d entries, want 3", len(fries.Options))
	}

	if !b.Consistent() {
		t.Errorf("breakdown totals are inconsistent: %+v", b)
	}
	if supplement(b, quote.ChargeDelivery) != quote.Zero {
		t.Errorf("no distance given, delivery must be absent")
	}
}

func TestCalculate_KegImpliesTapBeer(t *testing.T) {
	m := quotetest.BaseModel(quote.MobileTrailer)
	// bypass the setters to make sure pricing itself ORs the flags
	m.Lines[quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg}] = 1
	m.AddOns.TapBeerRequested = false

	b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if len(b.AddOns) != 1 || b.AddOns[0].Kind != quote.ChargeTapBeer {
		t.Fatalf("AddOns = %+v, want the tap beer charge only", b.AddOns)
	}
	if b.AddOnTotal != quote.Units(60) {
		t.Errorf("AddOnTotal = %s, want 60.00", b.AddOnTotal)
	}
}

func TestCalculate_KegSizeFallback(t *testing.T) {
	m := quotetest.BaseModel(quote.MobileTrailer)
	// 50 L is not in the size table
	ref := quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg, SizeLiters: 50}
	m.Lines[ref] = 1

	b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	li, ok := b.LineItem(ref)
	if !ok {
		t.Fatalf("keg line missing from breakdown")
	}
	if li.UnitPrice != quote.Units(120) || li.Label != "Bière blonde" {
		t.Errorf("keg line = {%s %q}, want the flat price without a size", li.UnitPrice, li.Label)
	}
}

func TestCalculate_AddOnFlags(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *quote.SelectionModel)
		want  quote.Money
	}{
		{"none", func(m *quote.SelectionModel) {}, quote.Zero},
		{"tap beer without keg", func(m *quote.SelectionModel) { m.AddOns.TapBeerRequested = true }, quote.Units(60)},
		{"games flag", func(m *quote.SelectionModel) { m.AddOns.GamesRequested = true }, quote.Units(40)},
		{"single game line", func(m *quote.SelectionModel) {
			m.Lines[quote.ProductRef{Category: quote.CategoryGame, ID: quotetest.Petanque}] = 1
		}, quote.Units(40)},
		{"both", func(m *quote.SelectionModel) {
			m.AddOns.GamesRequested = true
			m.Lines[quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg}] = 2
		}, quote.Units(100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quotetest.BaseModel(quote.MobileTrailer)
			tt.setup(m)
			b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if b.AddOnTotal != tt.want {
				t.Errorf("AddOnTotal = %s, want %s", b.AddOnTotal, tt.want)
			}
		})
	}
}

func TestCalculate_FixedVenueRejectsAddOnLines(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	m.Lines[quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg}] = 1

	_, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	var verr *quote.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *quote.ValidationError", err)
	}
}

func TestCalculate_OptionCapViolation(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	m.Lines[quote.ProductRef{Category: quote.CategoryAccompaniment, ID: quotetest.Fries}] = 2
	m.Options[quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.Bearnaise}] = 2
	m.Options[quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.ChefSauce}] = 1

	_, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	var verr *quote.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *quote.ValidationError", err)
	}
	if !verr.Has("accompaniment:20") {
		t.Errorf("ValidationError fields = %+v, want accompaniment:20", verr.Fields)
	}
}

func TestCalculate_UnknownAndInactiveProducts(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	m.Lines[quote.ProductRef{Category: quote.CategoryMiniMenu, ID: quotetest.RetiredMenu}] = 3
	m.Lines[quote.ProductRef{Category: quote.CategoryMiniMenu, ID: 999}] = 2

	b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if len(b.LineItems) != 2 {
		t.Fatalf("LineItems = %d, want 2", len(b.LineItems))
	}
	for _, li := range b.LineItems {
		if li.Known || li.Total != quote.Zero {
			t.Errorf("line %s = %+v, want unknown at zero", li.Ref, li)
		}
	}
	if b.GrandTotal != quote.Units(300) {
		t.Errorf("GrandTotal = %s, want base price only", b.GrandTotal)
	}
}

func TestCalculate_BuffetGatedByType(t *testing.T) {
	tests := []struct {
		bt   quote.BuffetType
		want quote.Money
	}{
		{quote.BuffetNone, quote.Zero},
		{quote.BuffetSavory, quote.Units(240)},
		{quote.BuffetSweet, quote.Units(90)},
		{quote.BuffetBoth, quote.Units(330)},
	}
	for _, tt := range tests {
		t.Run(string(tt.bt), func(t *testing.T) {
			m := quotetest.BaseModel(quote.FixedVenue)
			m.BuffetType = tt.bt
			m.Lines[quote.ProductRef{Category: quote.CategoryBuffetSavory, ID: quotetest.SavoryBuffet}] = 20
			m.Lines[quote.ProductRef{Category: quote.CategoryBuffetSweet, ID: quotetest.SweetBuffet}] = 10

			b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if b.LineItemsTotal != tt.want {
				t.Errorf("LineItemsTotal = %s, want %s", b.LineItemsTotal, tt.want)
			}
		})
	}
}

func TestCalculate_GrandTotalIsSumOfParts(t *testing.T) {
	m := quotetest.BaseModel(quote.MobileTrailer)
	m.GuestCount = 120
	m.DurationHours = 8
	m.BuffetType = quote.BuffetBoth
	m.AddOns.GamesRequested = true
	m.Lines[quote.ProductRef{Category: quote.CategoryMiniMenu, ID: quotetest.KidsMenu}] = 15
	m.Lines[quote.ProductRef{Category: quote.CategoryBuffetSweet, ID: quotetest.SweetBuffet}] = 40
	m.Lines[quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg, SizeLiters: 20}] = 2

	for _, km := range []float64{0, 12.5, 30, 30.1, 77, 149.9, 150} {
		b, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), &quote.Distance{PostalCode: "69003", Km: km})
		if err != nil {
			t.Fatalf("Calculate(%v km) error = %v", km, err)
		}
		want := quote.Sum(b.BasePrice, b.SupplementsTotal, b.LineItemsTotal, b.AddOnTotal)
		if b.GrandTotal != want || !b.Consistent() {
			t.Errorf("%v km: GrandTotal = %s, parts sum to %s", km, b.GrandTotal, want)
		}
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	m.Lines[quote.ProductRef{Category: quote.CategoryMiniMenu, ID: quotetest.KidsMenu}] = 12
	m.Lines[quote.ProductRef{Category: quote.CategoryAccompaniment, ID: quotetest.Fries}] = 5
	m.Options[quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.ChefSauce}] = 2
	m.Options[quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.Bearnaise}] = 3

	first, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
		if err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		if again.GrandTotal != first.GrandTotal || len(again.LineItems) != len(first.LineItems) {
			t.Fatalf("run %d differs: %s vs %s", i, again.GrandTotal, first.GrandTotal)
		}
		for j := range first.LineItems {
			if again.LineItems[j].Ref != first.LineItems[j].Ref {
				t.Fatalf("run %d: line order differs at %d", i, j)
			}
		}
	}
}

func mustSet(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setter error = %v", err)
	}
}

func supplement(b *quote.PriceBreakdown, kind quote.ChargeKind) quote.Money {
	c, _ := b.Supplement(kind)
	return c.Amount
}
