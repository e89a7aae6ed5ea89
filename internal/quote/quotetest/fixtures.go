// Package quotetest provides a small pricing configuration and catalog for
// tests across packages.
package quotetest

import (
	"time"

	"privatize-quote/internal/quote"
)

// Product and option ids of the fixture catalog.
const (
	BurgerClassic = 1
	BurgerVeggie  = 2
	KidsMenu      = 10
	RetiredMenu   = 11
	Fries         = 20
	Bearnaise     = 201
	ExtraPortion  = 2011
	ChefSauce     = 202
	SavoryBuffet  = 30
	SweetBuffet   = 31
	Lemonade      = 40
	Lemonade33cl  = 401
	Lemonade1L    = 402
	LagerKeg      = 50
	Petanque      = 60
	Molkky        = 61
)

// Config returns a valid pricing configuration.
func Config() quote.PricingConfiguration {
	return quote.PricingConfiguration{
		FixedVenue: quote.VariantConfig{
			BasePrice:        quote.Units(300),
			MinGuests:        10,
			MaxGuests:        40,
			MinDuration:      2,
			MaxDuration:      6,
			IncludedDuration: 2,
			HourlyRate:       quote.Units(50),
			MinQuantities:    map[string]int{"mini_menu": 10},
		},
		MobileTrailer: quote.VariantConfig{
			BasePrice:        quote.Units(500),
			MinGuests:        20,
			MaxGuests:        150,
			MinDuration:      3,
			MaxDuration:      8,
			IncludedDuration: 3,
			HourlyRate:       quote.Units(80),
			StaffThreshold:   50,
			StaffSupplement:  quote.Units(150),
			MinQuantities:    map[string]int{"buffet_savory": 20},
		},
		Delivery: quote.DeliveryTable{
			FreeRadiusKm:  30,
			TierBoundsKm:  []float64{50, 100, 150},
			TierAmounts:   []quote.Money{quote.Units(20), quote.Units(45), quote.Units(90)},
			MaxDistanceKm: 150,
		},
		AddOns: quote.AddOnPrices{
			TapBeerPrice: quote.Units(60),
			GamesPrice:   quote.Units(40),
		},
		OptionAliases: map[string]string{"Sauce maison": "Sauce du chef"},
	}
}

// CatalogData returns the raw fixture catalog.
func CatalogData() quote.CatalogData {
	return quote.CatalogData{
		Products: []quote.Product{
			{ID: BurgerClassic, Category: quote.CategorySignatureDish, Name: "Burger classique", Family: "classic", Price: quote.Cents(1450), Active: true},
			{ID: BurgerVeggie, Category: quote.CategorySignatureDish, Name: "Burger veggie", Family: "veggie", Price: quote.Cents(1390), Active: true},
			{ID: KidsMenu, Category: quote.CategoryMiniMenu, Name: "Mini menu enfant", Price: quote.Units(8), Active: true},
			{ID: RetiredMenu, Category: quote.CategoryMiniMenu, Name: "Ancien menu", Price: quote.Units(7), Active: false},
			{ID: Fries, Category: quote.CategoryAccompaniment, Name: "Frites", Price: quote.Cents(350), Active: true},
			{ID: SavoryBuffet, Category: quote.CategoryBuffetSavory, Name: "Buffet salé", Price: quote.Units(12), Active: true},
			{ID: SweetBuffet, Category: quote.CategoryBuffetSweet, Name: "Buffet sucré", Price: quote.Units(9), Active: true},
			{ID: Lemonade, Category: quote.CategoryBeverage, Name: "Limonade", Price: quote.Units(3), Active: true},
			{ID: LagerKeg, Category: quote.CategoryKeg, Name: "Bière blonde", Price: quote.Units(120), Active: true},
			{ID: Petanque, Category: quote.CategoryGame, Name: "Pétanque", Price: quote.Zero, Active: true},
			{ID: Molkky, Category: quote.CategoryGame, Name: "Mölkky", Price: quote.Units(15), Active: true},
		},
		Options: map[int64][]quote.Option{
			Fries: {
				{
					ID: Bearnaise, Name: "Sauce Béarnaise", Price: quote.Cents(80),
					SubOptions: []quote.SubOption{{ID: ExtraPortion, Name: "Extra portion", Price: quote.Cents(50)}},
				},
				{ID: ChefSauce, Name: "Sauce du chef", Price: quote.Units(1), Aliases: []string{"sauce speciale"}},
			},
		},
		Sizes: []quote.BeverageSize{
			{ID: Lemonade33cl, ProductID: Lemonade, SizeCl: 33, Price: quote.Cents(250)},
			{ID: Lemonade1L, ProductID: Lemonade, SizeCl: 100, Price: quote.Units(6)},
			{ID: 501, ProductID: LagerKeg, SizeLiters: 20, Price: quote.Units(150)},
			{ID: 502, ProductID: LagerKeg, SizeLiters: 30, Price: quote.Units(200)},
		},
	}
}

// Catalog returns the fixture catalog as a snapshot.
func Catalog() *quote.CatalogSnapshot {
	return quote.NewCatalogSnapshot(CatalogData())
}

// EventDate is a fixed date far enough in the future for validation.
var EventDate = time.Date(2030, time.June, 14, 0, 0, 0, 0, time.UTC)

// Now is the clock used by sequencer tests.
func Now() time.Time { return time.Date(2030, time.January, 1, 10, 0, 0, 0, time.UTC) }

// BaseModel returns a model that satisfies the base package step.
func BaseModel(v quote.ServiceVariant) *quote.SelectionModel {
	m := quote.NewSelectionModel(v)
	m.EventDate = EventDate
	switch v {
	case quote.FixedVenue:
		m.GuestCount = 20
		m.DurationHours = 2
	case quote.MobileTrailer:
		m.GuestCount = 40
		m.DurationHours = 3
		m.PostalCode = "69003"
	}
	return m
}
