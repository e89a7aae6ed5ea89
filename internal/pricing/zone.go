package pricing

import (
	"fmt"
	"math"

	"privatize-quote/internal/quote"
)

// Zone is the delivery tier a distance falls in. Tier 0 is the free radius.
type Zone struct {
	Tier   int
	Amount quote.Money
}

// ResolveZone walks the tiers in ascending order; bounds are inclusive and the
// first match wins. Anything above the maximum distance is not served.
func ResolveZone(km float64, table quote.DeliveryTable) (Zone, error) {
	if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return Zone{}, &quote.MalformedInputError{
			Field: "distance_km",
			Value: fmt.Sprintf("%v", km),
			Msg:   "distance must be a finite non-negative number",
		}
	}

	if km <= table.FreeRadiusKm {
		return Zone{Tier: 0}, nil
	}
	if km <= table.MaxDistanceKm {
		for i, bound := range table.TierBoundsKm {
			if km <= bound {
				return Zone{Tier: i + 1, Amount: table.TierAmounts[i]}, nil
			}
		}
	}

	return Zone{}, &quote.NotServedError{DistanceKm: km, MaxDistanceKm: table.MaxDistanceKm}
}
