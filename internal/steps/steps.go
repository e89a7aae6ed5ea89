// Package steps defines the quote wizard's step order per service variant and
// the fields each step owns.
package steps

import (
	"fmt"

	"privatize-quote/internal/quote"
)

// Step is one wizard screen.
type Step string

const (
	StepIntro             Step = "intro"
	StepBasePackage       Step = "base_package"
	StepMealSelection     Step = "meal_selection"
	StepBuffetSelection   Step = "buffet_selection"
	StepBeverageSelection Step = "beverage_selection"
	StepAddOns            Step = "add_ons"
	StepContact           Step = "contact"
)

var (
	fixedVenueSteps = []Step{
		StepIntro,
		StepBasePackage,
		StepMealSelection,
		StepBuffetSelection,
		StepBeverageSelection,
		StepContact,
	}
	mobileTrailerSteps = []Step{
		StepIntro,
		StepBasePackage,
		StepMealSelection,
		StepBuffetSelection,
		StepBeverageSelection,
		StepAddOns,
		StepContact,
	}
)

// For returns the ordered steps of a variant. The returned slice is a copy.
func For(v quote.ServiceVariant) ([]Step, error) {
	var src []Step
	switch v {
	case quote.FixedVenue:
		src = fixedVenueSteps
	case quote.MobileTrailer:
		src = mobileTrailerSteps
	default:
		return nil, fmt.Errorf("no steps defined for service variant %q", v)
	}
	out := make([]Step, len(src))
	copy(out, src)
	return out, nil
}

// Index returns the position of a step in a variant's list, or -1.
func Index(v quote.ServiceVariant, s Step) int {
	list, err := For(v)
	if err != nil {
		return -1
	}
	for i, st := range list {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports the last step of every variant.
func (s Step) Terminal() bool { return s == StepContact }

// Optional steps are satisfiable with zero selections.
func (s Step) Optional() bool {
	switch s {
	case StepBuffetSelection, StepBeverageSelection, StepAddOns:
		return true
	}
	return false
}

// ParseStep validates a step name.
func ParseStep(s string) (Step, error) {
	for _, st := range mobileTrailerSteps {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", s)
}
