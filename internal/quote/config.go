package quote

import (
	"fmt"
)

// VariantConfig holds the numeric parameters of one offering.
type VariantConfig struct {
	BasePrice        Money `toml:"base_price" json:"base_price"`
	MinGuests        int   `toml:"min_guests" json:"min_guests"`
	MaxGuests        int   `toml:"max_guests" json:"max_guests"`
	MinDuration      int   `toml:"min_duration" json:"min_duration"`
	MaxDuration      int   `toml:"max_duration" json:"max_duration"`
	IncludedDuration int   `toml:"included_duration" json:"included_duration"`
	HourlyRate       Money `toml:"hourly_rate" json:"hourly_rate"`
	// StaffThreshold of zero disables the guest supplement.
	StaffThreshold  int   `toml:"staff_threshold" json:"staff_threshold,omitempty"`
	StaffSupplement Money `toml:"staff_supplement" json:"staff_supplement,omitempty"`
	// MinQuantities is keyed by category name; a category with any selection
	// must reach its minimum in total.
	MinQuantities map[string]int `toml:"min_quantities" json:"min_quantities,omitempty"`
}

// MinQuantity returns the configured minimum for a category, 0 when unset.
func (v VariantConfig) MinQuantity(c Category) int {
	return v.MinQuantities[string(c)]
}

// DeliveryTable maps distances to flat surcharges. Bounds are inclusive upper
// bounds in ascending order; the last bound equals MaxDistanceKm.
type DeliveryTable struct {
	FreeRadiusKm  float64   `toml:"free_radius_km" json:"free_radius_km"`
	TierBoundsKm  []float64 `toml:"tier_bounds_km" json:"tier_bounds_km"`
	TierAmounts   []Money   `toml:"tier_amounts" json:"tier_amounts"`
	MaxDistanceKm float64   `toml:"max_distance_km" json:"max_distance_km"`
}

type AddOnPrices struct {
	TapBeerPrice Money `toml:"tap_beer_price" json:"tap_beer_price"`
	GamesPrice   Money `toml:"games_price" json:"games_price"`
}

// PricingConfiguration is assembled once by the configuration layer and
// passed by value into the engine.
type PricingConfiguration struct {
	FixedVenue    VariantConfig `toml:"fixed_venue" json:"fixed_venue"`
	MobileTrailer VariantConfig `toml:"mobile_trailer" json:"mobile_trailer"`
	Delivery      DeliveryTable `toml:"delivery" json:"delivery"`
	AddOns        AddOnPrices   `toml:"add_ons" json:"add_ons"`
	// OptionAliases maps historical option display names to current ones.
	OptionAliases map[string]string `toml:"option_aliases" json:"option_aliases,omitempty"`
}

// Variant returns the record of one offering.
func (c PricingConfiguration) Variant(v ServiceVariant) (VariantConfig, error) {
	switch v {
	case FixedVenue:
		return c.FixedVenue, nil
	case MobileTrailer:
		return c.MobileTrailer, nil
	}
	return VariantConfig{}, fmt.Errorf("unknown service variant %q", v)
}

// Validate checks the configuration for internal consistency.
func (c PricingConfiguration) Validate() error {
	for _, v := range Variants {
		vc, _ := c.Variant(v)
		if err := vc.validate(); err != nil {
			return fmt.Errorf("%s: %w", v, err)
		}
	}
	if err := c.Delivery.Validate(); err != nil {
		return fmt.Errorf("delivery: %w", err)
	}
	if c.AddOns.TapBeerPrice < 0 || c.AddOns.GamesPrice < 0 {
		return fmt.Errorf("add_ons: prices cannot be negative")
	}
	return nil
}

func (v VariantConfig) validate() error {
	switch {
	case v.BasePrice < 0:
		return fmt.Errorf("base_price cannot be negative")
	case v.MinGuests < 1:
		return fmt.Errorf("min_guests must be at least 1")
	case v.MaxGuests < v.MinGuests:
		return fmt.Errorf("max_guests %d is below min_guests %d", v.MaxGuests, v.MinGuests)
	case v.MinDuration < 1:
		return fmt.Errorf("min_duration must be at least 1")
	case v.MaxDuration < v.MinDuration:
		return fmt.Errorf("max_duration %d is below min_duration %d", v.MaxDuration, v.MinDuration)
	case v.IncludedDuration < 0:
		return fmt.Errorf("included_duration cannot be negative")
	case v.HourlyRate < 0:
		return fmt.Errorf("hourly_rate cannot be negative")
	case v.StaffThreshold < 0 || v.StaffSupplement < 0:
		return fmt.Errorf("staff threshold and supplement cannot be negative")
	}
	for name, q := range v.MinQuantities {
		if !Category(name).Valid() {
			return fmt.Errorf("min_quantities: unknown category %q", name)
		}
		if q < 0 {
			return fmt.Errorf("min_quantities: %s cannot be negative", name)
		}
	}
	return nil
}

// Validate checks that the tiers are exhaustive over [0, MaxDistanceKm].
func (d DeliveryTable) Validate() error {
	if d.FreeRadiusKm < 0 {
		return fmt.Errorf("free_radius_km cannot be negative")
	}
	if d.MaxDistanceKm <= 0 {
		return fmt.Errorf("max_distance_km must be positive")
	}
	if len(d.TierBoundsKm) != len(d.TierAmounts) {
		return fmt.Errorf("%d tier bounds but %d tier amounts", len(d.TierBoundsKm), len(d.TierAmounts))
	}
	prev := d.FreeRadiusKm
	for i, b := range d.TierBoundsKm {
		if b <= prev {
			return fmt.Errorf("tier bound %d (%.1f km) must be above %.1f km", i, b, prev)
		}
		if d.TierAmounts[i] < 0 {
			return fmt.Errorf("tier amount %d cannot be negative", i)
		}
		prev = b
	}
	if len(d.TierBoundsKm) == 0 {
		if d.FreeRadiusKm != d.MaxDistanceKm {
			return fmt.Errorf("without tiers the free radius must equal max_distance_km")
		}
		return nil
	}
	if last := d.TierBoundsKm[len(d.TierBoundsKm)-1]; last != d.MaxDistanceKm {
		return fmt.Errorf("last tier bound %.1f km must equal max_distance_km %.1f", last, d.MaxDistanceKm)
	}
	return nil
}
