package quote

// ChargeKind tags flat charges in a breakdown.
type ChargeKind string

const (
	ChargeDuration ChargeKind = "duration"
	ChargeGuests   ChargeKind = "guests"
	ChargeDelivery ChargeKind = "delivery"
	ChargeTapBeer  ChargeKind = "tap_beer"
	ChargeGames    ChargeKind = "games"
)

// Charge is a flat amount (supplement or add-on).
type Charge struct {
	Kind   ChargeKind `json:"kind"`
	Label  string     `json:"label"`
	Amount Money      `json:"amount"`
}

// LineItem is one priced selection. For accompaniments Total includes the
// option and suboption roll-up, so Total may exceed Quantity*UnitPrice.
type LineItem struct {
	Ref       ProductRef `json:"ref"`
	Category  Category   `json:"category"`
	Label     string     `json:"label"`
	Quantity  int        `json:"quantity"`
	UnitPrice Money      `json:"unit_price"`
	Total     Money      `json:"total"`
	// Known is false when the product id is missing from the catalog or
	// inactive; such lines are priced at zero but kept visible.
	Known   bool          `json:"known"`
	Options []OptionCharge `json:"options,omitempty"`
}

// OptionCharge documents one option or suboption folded into a LineItem.
type OptionCharge struct {
	OptionID    int64  `json:"option_id"`
	SubOptionID int64  `json:"sub_option_id,omitempty"`
	Label       string `json:"label"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	Total       Money  `json:"total"`
}

// DeliveryQuote records how the delivery supplement was chosen.
type DeliveryQuote struct {
	PostalCode string  `json:"postal_code"`
	DistanceKm float64 `json:"distance_km"`
	// Tier is 0 inside the free radius, then 1..n.
	Tier   int   `json:"tier"`
	Amount Money `json:"amount"`
}

// PriceBreakdown is the immutable result of one calculation.
type PriceBreakdown struct {
	Variant          ServiceVariant `json:"variant"`
	BasePrice        Money          `json:"base_price"`
	Supplements      []Charge       `json:"supplements"`
	LineItems        []LineItem     `json:"line_items"`
	AddOns           []Charge       `json:"add_ons"`
	SupplementsTotal Money          `json:"supplements_total"`
	LineItemsTotal   Money          `json:"line_items_total"`
	AddOnTotal       Money          `json:"add_on_total"`
	GrandTotal       Money          `json:"grand_total"`
	Delivery         *DeliveryQuote `json:"delivery,omitempty"`
}

// Supplement returns the supplement of a given kind, if present.
func (b *PriceBreakdown) Supplement(kind ChargeKind) (Charge, bool) {
	for _, c := range b.Supplements {
		if c.Kind == kind {
			return c, true
		}
	}
	return Charge{}, false
}

// LineItem returns the item priced for a ref, if present.
func (b *PriceBreakdown) LineItem(ref ProductRef) (LineItem, bool) {
	for _, li := range b.LineItems {
		if li.Ref == ref {
			return li, true
		}
	}
	return LineItem{}, false
}

// Consistent reports whether the grand total equals the sum of the
// independently reported parts.
func (b *PriceBreakdown) Consistent() bool {
	var sup, lines, addOns Money
	for _, c := range b.Supplements {
		sup += c.Amount
	}
	for _, li := range b.LineItems {
		lines += li.Total
	}
	for _, c := range b.AddOns {
		addOns += c.Amount
	}
	return sup == b.SupplementsTotal &&
		lines == b.LineItemsTotal &&
		addOns == b.AddOnTotal &&
		b.GrandTotal == b.BasePrice+sup+lines+addOns
}
