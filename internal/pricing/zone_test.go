package pricing

import (
	"errors"
	"math"
	"testing"

	"privatize-quote/internal/quote"
	"privatize-quote/internal/quote/quotetest"
)

func TestResolveZone(t *testing.T) {
	table := quotetest.Config().Delivery

	tests := []struct {
		name      string
		km        float64
		wantTier  int
		wantPrice quote.Money
		wantErr   bool
	}{
		{"origin", 0, 0, quote.Zero, false},
		{"inside free radius", 12, 0, quote.Zero, false},
		{"free radius bound is inclusive", 30, 0, quote.Zero, false},
		{"just past free radius", 30.01, 1, quote.Units(20), false},
		{"first tier", 45, 1, quote.Units(20), false},
		{"first bound is inclusive", 50, 1, quote.Units(20), false},
		{"second tier", 50.5, 2, quote.Units(45), false},
		{"last tier", 120, 3, quote.Units(90), false},
		{"max distance is served", 150, 3, quote.Units(90), false},
		{"beyond max", 150.01, 0, quote.Zero, true},
		{"far away", 180, 0, quote.Zero, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := ResolveZone(tt.km, table)
			if tt.wantErr {
				var ns *quote.NotServedError
				if !errors.As(err, &ns) {
					t.Fatalf("error = %v, want *quote.NotServedError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveZone(%v) error = %v", tt.km, err)
			}
			if z.Tier != tt.wantTier || z.Amount != tt.wantPrice {
				t.Errorf("ResolveZone(%v) = %+v, want tier %d at %s", tt.km, z, tt.wantTier, tt.wantPrice)
			}
		})
	}
}

func TestResolveZone_InvalidDistance(t *testing.T) {
	table := quotetest.Config().Delivery
	for _, km := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := ResolveZone(km, table)
		var mi *quote.MalformedInputError
		if !errors.As(err, &mi) {
			t.Errorf("ResolveZone(%v) error = %v, want *quote.MalformedInputError", km, err)
		}
	}
}

func TestResolveZone_Monotonic(t *testing.T) {
	table := quotetest.Config().Delivery

	prevTier, prevAmount := 0, quote.Zero
	for km := 0.0; km <= table.MaxDistanceKm; km += 0.25 {
		z, err := ResolveZone(km, table)
		if err != nil {
			t.Fatalf("ResolveZone(%v) error = %v", km, err)
		}
		if z.Tier < prevTier || z.Amount < prevAmount {
			t.Fatalf("zone decreased at %v km: tier %d -> %d, amount %s -> %s",
				km, prevTier, z.Tier, prevAmount, z.Amount)
		}
		prevTier, prevAmount = z.Tier, z.Amount
	}
}
