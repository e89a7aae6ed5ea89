package decoder

import (
	"errors"
	"testing"

	"privatize-quote/internal/pricing"
	"privatize-quote/internal/quote"
	"privatize-quote/internal/quote/quotetest"
)

var (
	friesRef     = quote.ProductRef{Category: quote.CategoryAccompaniment, ID: quotetest.Fries}
	bearnaiseRef = quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.Bearnaise}
	extraRef     = quote.SubOptionRef{ProductID: quotetest.Fries, OptionID: quotetest.Bearnaise, SubOptionID: quotetest.ExtraPortion}
)

func decodeApply(t *testing.T, m *quote.SelectionModel, fields map[string]string) (*quote.SelectionModel, error) {
	t.Helper()
	r, err := newTestDecoder().Decode(fields)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return Apply(m, r)
}

func TestApply_VariantMismatch(t *testing.T) {
	m := quote.NewSelectionModel(quote.FixedVenue)
	_, err := decodeApply(t, m, map[string]string{"service_variant": "mobile_trailer"})

	var verr *quote.ValidationError
	if !errors.As(err, &verr) || !verr.Has(FieldServiceVariant) {
		t.Fatalf("Apply() error = %v, want validation error on %s", err, FieldServiceVariant)
	}
}

func TestApply_OptionCapRejected(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	if err := m.SetLine(friesRef, 2); err != nil {
		t.Fatal(err)
	}

	out, err := decodeApply(t, m, map[string]string{
		"accompaniment_20_opt_201_qty": "2",
		"accompaniment_20_opt_202_qty": "1",
	})
	var verr *quote.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Apply() error = %v, want *quote.ValidationError", err)
	}
	if out != nil {
		t.Errorf("Apply() returned a model alongside an error")
	}
	if len(m.Options) != 0 {
		t.Errorf("original model was modified: %v", m.Options)
	}
}

func TestApply_LowersParentAndChildrenTogether(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	for _, err := range []error{
		m.SetLine(friesRef, 10),
		m.SetOption(bearnaiseRef, 6),
		m.SetSubOption(extraRef, 4),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	out, err := decodeApply(t, m, map[string]string{
		"accompaniment_20_qty":                  "3",
		"accompaniment_20_opt_201_qty":          "2",
		"accompaniment_20_opt_201_sub_2011_qty": "1",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.Lines[friesRef] != 3 || out.Options[bearnaiseRef] != 2 || out.SubOptions[extraRef] != 1 {
		t.Errorf("got line=%d option=%d sub=%d, want 3/2/1",
			out.Lines[friesRef], out.Options[bearnaiseRef], out.SubOptions[extraRef])
	}
}

func TestApply_RaisesParentBeforeChildren(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)

	out, err := decodeApply(t, m, map[string]string{
		"accompaniment_20_qty":                  "5",
		"accompaniment_20_opt_201_qty":          "5",
		"accompaniment_20_opt_201_sub_2011_qty": "5",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.SubOptions[extraRef] != 5 {
		t.Errorf("SubOptions = %v", out.SubOptions)
	}
}

func TestApply_ZeroClearsLineAndOptions(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	if err := m.SetLine(friesRef, 5); err != nil {
		t.Fatal(err)
	}
	if err := m.SetOption(bearnaiseRef, 2); err != nil {
		t.Fatal(err)
	}

	out, err := decodeApply(t, m, map[string]string{"accompaniment_20_qty": "0"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, ok := out.Lines[friesRef]; ok {
		t.Errorf("line still present: %v", out.Lines)
	}
	if len(out.Options) != 0 {
		t.Errorf("options not cleared: %v", out.Options)
	}
}

func TestApply_RemovedKegDropsTapBeer(t *testing.T) {
	tapBeer := func(m *quote.SelectionModel) quote.Money {
		t.Helper()
		b, err := pricing.Calculate(m, quotetest.Config(), quotetest.Catalog(), nil)
		if err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		return b.AddOnTotal
	}

	m := quotetest.BaseModel(quote.MobileTrailer)
	withKeg, err := decodeApply(t, m, map[string]string{"keg_50_20l_qty": "1"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := tapBeer(withKeg); got != quote.Units(60) {
		t.Errorf("add-ons with a keg = %s, want 60.00", got)
	}

	removed, err := decodeApply(t, withKeg, map[string]string{"keg_50_20l_qty": "0"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if removed.HasKegs() || removed.AddOns.TapBeerRequested {
		t.Fatalf("keg removal left kegs=%v tap_beer=%v", removed.HasKegs(), removed.AddOns.TapBeerRequested)
	}
	if got := tapBeer(removed); got != quote.Zero {
		t.Errorf("add-ons after removing the keg = %s, want 0.00", got)
	}

	kept, err := decodeApply(t, withKeg, map[string]string{"keg_50_20l_qty": "0", "tap_beer": "1"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := tapBeer(kept); got != quote.Units(60) {
		t.Errorf("add-ons with tap_beer=1 = %s, want 60.00", got)
	}
}

func TestApply_SignatureFamilySwitchDropsDishes(t *testing.T) {
	m := quotetest.BaseModel(quote.FixedVenue)
	m.SetSignatureDishType("classic")
	if err := m.SetLine(quote.ProductRef{Category: quote.CategorySignatureDish, ID: quotetest.BurgerClassic}, 20); err != nil {
		t.Fatal(err)
	}

	out, err := decodeApply(t, m, map[string]string{
		"signature_dish_type":  "veggie",
		"signature_dish_2_qty": "15",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.CategoryQuantity(quote.CategorySignatureDish) != 15 {
		t.Errorf("signature lines = %v, want only the veggie burger", out.Lines)
	}
}

func TestEncodeDecodeApply_PricesIdentically(t *testing.T) {
	tests := []struct {
		name  string
		model func(t *testing.T) *quote.SelectionModel
	}{
		{
			name: "fixed venue",
			model: func(t *testing.T) *quote.SelectionModel {
				m := quotetest.BaseModel(quote.FixedVenue)
				m.DurationHours = 5
				m.BuffetType = quote.BuffetSavory
				m.SetSignatureDishType("classic")
				mustApply(t,
					m.SetLine(quote.ProductRef{Category: quote.CategorySignatureDish, ID: quotetest.BurgerClassic}, 18),
					m.SetLine(quote.ProductRef{Category: quote.CategoryMiniMenu, ID: quotetest.KidsMenu}, 10),
					m.SetLine(friesRef, 12),
					m.SetOption(bearnaiseRef, 7),
					m.SetOption(quote.OptionRef{ProductID: quotetest.Fries, OptionID: quotetest.ChefSauce}, 5),
					m.SetSubOption(extraRef, 3),
					m.SetLine(quote.ProductRef{Category: quote.CategoryBuffetSavory, ID: quotetest.SavoryBuffet}, 20),
					m.SetLine(quote.ProductRef{Category: quote.CategoryBeverageSize, ID: quotetest.Lemonade1L}, 4),
				)
				m.Contact = quote.Contact{FirstName: "Anna", LastName: "Martin", Email: "anna@example.com", Phone: "0612345678"}
				return m
			},
		},
		{
			name: "mobile trailer",
			model: func(t *testing.T) *quote.SelectionModel {
				m := quotetest.BaseModel(quote.MobileTrailer)
				m.GuestCount = 90
				m.DurationHours = 6
				m.BuffetType = quote.BuffetBoth
				mustApply(t,
					m.SetLine(quote.ProductRef{Category: quote.CategoryBuffetSweet, ID: quotetest.SweetBuffet}, 90),
					m.SetLine(quote.ProductRef{Category: quote.CategoryBeverage, ID: quotetest.Lemonade}, 30),
					m.SetLine(quote.ProductRef{Category: quote.CategoryKeg, ID: quotetest.LagerKeg, SizeLiters: 30}, 2),
					m.SetLine(quote.ProductRef{Category: quote.CategoryGame, ID: quotetest.Molkky}, 1),
				)
				return m
			},
		},
	}
	dist := &quote.Distance{PostalCode: "69003", Km: 72}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direct := tt.model(t)
			want, err := pricing.Calculate(direct, quotetest.Config(), quotetest.Catalog(), dist)
			if err != nil {
				t.Fatalf("Calculate(direct) error = %v", err)
			}

			r, err := newTestDecoder().Decode(Encode(direct))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(r.Unclassified) != 0 {
				t.Errorf("Unclassified = %v, want none", r.Unclassified)
			}
			rebuilt, err := Apply(quote.NewSelectionModel(direct.Variant), r)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			got, err := pricing.Calculate(rebuilt, quotetest.Config(), quotetest.Catalog(), dist)
			if err != nil {
				t.Fatalf("Calculate(rebuilt) error = %v", err)
			}

			if got.GrandTotal != want.GrandTotal {
				t.Errorf("GrandTotal = %s, want %s", got.GrandTotal, want.GrandTotal)
			}
			if len(got.LineItems) != len(want.LineItems) {
				t.Fatalf("LineItems = %d, want %d", len(got.LineItems), len(want.LineItems))
			}
			for i := range want.LineItems {
				if got.LineItems[i].Ref != want.LineItems[i].Ref || got.LineItems[i].Total != want.LineItems[i].Total {
					t.Errorf("line %d = %s %s, want %s %s", i,
						got.LineItems[i].Ref, got.LineItems[i].Total, want.LineItems[i].Ref, want.LineItems[i].Total)
				}
			}
			if rebuilt.Contact != direct.Contact {
				t.Errorf("Contact = %+v, want %+v", rebuilt.Contact, direct.Contact)
			}
		})
	}
}

func mustApply(t *testing.T, errs ...error) {
	t.Helper()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("setter error = %v", err)
		}
	}
}
