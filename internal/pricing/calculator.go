// Package pricing turns a selection model into an itemized price breakdown.
// Everything here is pure: catalog, configuration and the resolved delivery
// distance are passed in, nothing is fetched.
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"privatize-quote/internal/quote"
)

// Calculate prices a selection. dist is nil until the postal code has been
// resolved; the delivery supplement is then left out. A distance beyond the
// maximum returns *quote.NotServedError and no breakdown.
func Calculate(
	model *quote.SelectionModel,
	cfg quote.PricingConfiguration,
	catalog *quote.CatalogSnapshot,
	dist *quote.Distance,
) (*quote.PriceBreakdown, error) {
	if model == nil {
		return nil, errors.New("pricing: nil selection model")
	}
	if catalog == nil {
		catalog = quote.NewCatalogSnapshot(quote.CatalogData{})
	}

	vc, err := cfg.Variant(model.Variant)
	if err != nil {
		return nil, quote.NewValidationError("service_variant", err.Error())
	}
	if err := checkModel(model); err != nil {
		return nil, err
	}

	b := &quote.PriceBreakdown{
		Variant:   model.Variant,
		BasePrice: vc.BasePrice,
	}

	if c, ok := durationSupplement(model, vc); ok {
		b.Supplements = append(b.Supplements, c)
	}
	if c, ok := guestSupplement(model, vc); ok {
		b.Supplements = append(b.Supplements, c)
	}
	if model.Variant.HasDelivery() && dist != nil {
		zone, err := ResolveZone(dist.Km, cfg.Delivery)
		if err != nil {
			var ns *quote.NotServedError
			if errors.As(err, &ns) {
				ns.PostalCode = dist.PostalCode
			}
			return nil, err
		}
		b.Delivery = &quote.DeliveryQuote{
			PostalCode: dist.PostalCode,
			DistanceKm: dist.Km,
			Tier:       zone.Tier,
			Amount:     zone.Amount,
		}
		b.Supplements = append(b.Supplements, quote.Charge{
			Kind:   quote.ChargeDelivery,
			Label:  deliveryLabel(zone, dist.Km),
			Amount: zone.Amount,
		})
	}

	for _, ref := range model.Lines.Refs() {
		qty := model.Lines[ref]
		if qty <= 0 {
			continue
		}
		if ref.Category.IsBuffet() && !model.BuffetType.Includes(ref.Category) {
			continue
		}
		b.LineItems = append(b.LineItems, lineItem(model, catalog, ref, qty))
	}

	if model.Variant.HasDelivery() {
		if model.TapBeerWanted() {
			b.AddOns = append(b.AddOns, quote.Charge{
				Kind:   quote.ChargeTapBeer,
				Label:  "Tap beer",
				Amount: cfg.AddOns.TapBeerPrice,
			})
		}
		if model.GamesWanted() {
			b.AddOns = append(b.AddOns, quote.Charge{
				Kind:   quote.ChargeGames,
				Label:  "Games",
				Amount: cfg.AddOns.GamesPrice,
			})
		}
	}

	for _, c := range b.Supplements {
		b.SupplementsTotal += c.Amount
	}
	for _, li := range b.LineItems {
		b.LineItemsTotal += li.Total
	}
	for _, c := range b.AddOns {
		b.AddOnTotal += c.Amount
	}
	b.GrandTotal = quote.Sum(b.BasePrice, b.SupplementsTotal, b.LineItemsTotal, b.AddOnTotal)

	return b, nil
}

func checkModel(model *quote.SelectionModel) error {
	verr := &quote.ValidationError{}
	for ref, q := range model.Lines {
		if q < 0 {
			verr.Add(ref.String(), "quantity cannot be negative")
		}
		if q > 0 && ref.Category.IsAddOn() && !model.Variant.HasDelivery() {
			verr.Add(ref.String(), fmt.Sprintf("%s is only available for the mobile trailer", ref.Category))
		}
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	return model.CheckOptionCaps()
}

func durationSupplement(model *quote.SelectionModel, vc quote.VariantConfig) (quote.Charge, bool) {
	extra := model.DurationHours - vc.IncludedDuration
	if extra <= 0 {
		return quote.Charge{}, false
	}
	amount := vc.HourlyRate.Mul(extra)
	if amount.IsZero() {
		return quote.Charge{}, false
	}
	return quote.Charge{
		Kind:   quote.ChargeDuration,
		Label:  fmt.Sprintf("Extra duration (%d h x %s)", extra, vc.HourlyRate),
		Amount: amount,
	}, true
}

// single step, not proportional to the number of extra guests
func guestSupplement(model *quote.SelectionModel, vc quote.VariantConfig) (quote.Charge, bool) {
	if !model.Variant.HasDelivery() || vc.StaffThreshold <= 0 {
		return quote.Charge{}, false
	}
	if model.GuestCount <= vc.StaffThreshold || vc.StaffSupplement.IsZero() {
		return quote.Charge{}, false
	}
	return quote.Charge{
		Kind:   quote.ChargeGuests,
		Label:  fmt.Sprintf("Additional staff (more than %d guests)", vc.StaffThreshold),
		Amount: vc.StaffSupplement,
	}, true
}

func deliveryLabel(z Zone, km float64) string {
	if z.Tier == 0 {
		return fmt.Sprintf("Delivery (%.1f km, free zone)", km)
	}
	return fmt.Sprintf("Delivery (%.1f km, zone %d)", km, z.Tier)
}

func lineItem(model *quote.SelectionModel, catalog *quote.CatalogSnapshot, ref quote.ProductRef, qty int) quote.LineItem {
	li := quote.LineItem{
		Ref:      ref,
		Category: ref.Category,
		Quantity: qty,
	}

	switch {
	case ref.Category == quote.CategoryBeverageSize:
		sz, ok := catalog.BeverageSize(ref.ID)
		parent, parentOK := catalog.Product(quote.CategoryBeverage, sz.ProductID)
		if ok && parentOK && parent.Active {
			li.Known = true
			li.UnitPrice = sz.Price
			li.Label = fmt.Sprintf("%s %s", parent.Name, sizeLabel(sz))
		} else {
			li.Label = fmt.Sprintf("Unknown beverage size #%d", ref.ID)
		}

	default:
		p, ok := catalog.Product(ref.Category, ref.ID)
		if ok && p.Active {
			li.Known = true
			li.UnitPrice = p.Price
			li.Label = p.Name
			if ref.Category == quote.CategoryKeg && ref.SizeLiters > 0 {
				if price, found := catalog.KegSizePrice(ref.ID, ref.SizeLiters); found {
					li.UnitPrice = price
					li.Label = fmt.Sprintf("%s %d L", p.Name, ref.SizeLiters)
				}
			}
		} else {
			li.Label = fmt.Sprintf("Unknown %s #%d", ref.Category, ref.ID)
		}
	}

	li.Total = li.UnitPrice.Mul(qty)

	if ref.Category == quote.CategoryAccompaniment {
		li.Options = rollUpOptions(model, catalog, ref.ID)
		for _, oc := range li.Options {
			li.Total += oc.Total
		}
	}

	return li
}

// rollUpOptions prices the options chosen under one accompaniment and, one
// level down, the suboptions of each chosen option.
func rollUpOptions(model *quote.SelectionModel, catalog *quote.CatalogSnapshot, productID int64) []quote.OptionCharge {
	var refs []quote.OptionRef
	for ref, q := range model.Options {
		if ref.ProductID == productID && q > 0 {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].OptionID < refs[j].OptionID })

	var out []quote.OptionCharge
	for _, ref := range refs {
		qty := model.Options[ref]
		opt, ok := catalog.Option(productID, ref.OptionID)
		oc := quote.OptionCharge{OptionID: ref.OptionID, Quantity: qty}
		if ok {
			oc.Label = opt.Name
			oc.UnitPrice = opt.Price
		} else {
			oc.Label = fmt.Sprintf("Unknown option #%d", ref.OptionID)
		}
		oc.Total = oc.UnitPrice.Mul(qty)
		out = append(out, oc)

		out = append(out, rollUpSubOptions(model, opt, ok, ref)...)
	}
	return out
}

func rollUpSubOptions(model *quote.SelectionModel, opt quote.Option, optKnown bool, parent quote.OptionRef) []quote.OptionCharge {
	var refs []quote.SubOptionRef
	for ref, q := range model.SubOptions {
		if ref.Option() == parent && q > 0 {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].SubOptionID < refs[j].SubOptionID })

	var out []quote.OptionCharge
	for _, ref := range refs {
		qty := model.SubOptions[ref]
		oc := quote.OptionCharge{
			OptionID:    ref.OptionID,
			SubOptionID: ref.SubOptionID,
			Quantity:    qty,
			Label:       fmt.Sprintf("Unknown suboption #%d", ref.SubOptionID),
		}
		if optKnown {
			for _, sub := range opt.SubOptions {
				if sub.ID == ref.SubOptionID {
					oc.Label = sub.Name
					oc.UnitPrice = sub.Price
					break
				}
			}
		}
		oc.Total = oc.UnitPrice.Mul(qty)
		out = append(out, oc)
	}
	return out
}

func sizeLabel(sz quote.BeverageSize) string {
	if sz.SizeLiters > 0 {
		return fmt.Sprintf("%d L", sz.SizeLiters)
	}
	return fmt.Sprintf("%d cl", sz.SizeCl)
}
