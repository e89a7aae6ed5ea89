package quote

import "fmt"

// ServiceVariant is one of the two privatization offerings.
type ServiceVariant string

const (
	FixedVenue    ServiceVariant = "fixed_venue"
	MobileTrailer ServiceVariant = "mobile_trailer"
)

// Variants lists every offering in display order.
var Variants = []ServiceVariant{FixedVenue, MobileTrailer}

func (v ServiceVariant) Valid() bool {
	return v == FixedVenue || v == MobileTrailer
}

// HasDelivery reports whether the variant is delivered (postal code, zone
// tiers, guest threshold and add-ons).
func (v ServiceVariant) HasDelivery() bool {
	return v == MobileTrailer
}

// ParseServiceVariant accepts the canonical names plus the short forms the
// wizard historically posted.
func ParseServiceVariant(s string) (ServiceVariant, error) {
	switch s {
	case string(FixedVenue), "venue", "fixed", "restaurant":
		return FixedVenue, nil
	case string(MobileTrailer), "trailer", "mobile", "remorque":
		return MobileTrailer, nil
	}
	return "", fmt.Errorf("unknown service variant %q", s)
}

// Category tags every priced selection.
type Category string

const (
	CategorySignatureDish Category = "signature_dish"
	CategoryMiniMenu      Category = "mini_menu"
	CategoryAccompaniment Category = "accompaniment"
	CategoryBuffetSavory  Category = "buffet_savory"
	CategoryBuffetSweet   Category = "buffet_sweet"
	CategoryBeverage      Category = "beverage"
	CategoryBeverageSize  Category = "beverage_size"
	CategoryKeg           Category = "keg"
	CategoryGame          Category = "game"
)

// Categories is the breakdown display order.
var Categories = []Category{
	CategorySignatureDish,
	CategoryMiniMenu,
	CategoryAccompaniment,
	CategoryBuffetSavory,
	CategoryBuffetSweet,
	CategoryBeverage,
	CategoryBeverageSize,
	CategoryKeg,
	CategoryGame,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Order returns the category's index in the display order, or len(Categories)
// for unknown values.
func (c Category) Order() int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories)
}

// IsAddOn reports categories that only exist for the mobile trailer.
func (c Category) IsAddOn() bool {
	return c == CategoryKeg || c == CategoryGame
}

// IsBuffet reports the two buffet categories.
func (c Category) IsBuffet() bool {
	return c == CategoryBuffetSavory || c == CategoryBuffetSweet
}

// BuffetType gates which buffet categories are priced.
type BuffetType string

const (
	BuffetNone   BuffetType = "none"
	BuffetSavory BuffetType = "savory"
	BuffetSweet  BuffetType = "sweet"
	BuffetBoth   BuffetType = "both"
)

func (b BuffetType) Valid() bool {
	switch b {
	case "", BuffetNone, BuffetSavory, BuffetSweet, BuffetBoth:
		return true
	}
	return false
}

// Includes reports whether the buffet type lets category c be priced.
func (b BuffetType) Includes(c Category) bool {
	switch c {
	case CategoryBuffetSavory:
		return b == BuffetSavory || b == BuffetBoth
	case CategoryBuffetSweet:
		return b == BuffetSweet || b == BuffetBoth
	}
	return false
}
