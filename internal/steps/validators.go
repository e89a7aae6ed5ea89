package steps

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"privatize-quote/internal/quote"
)

// Sequencer validates step contracts against one configuration and catalog
// snapshot. It holds no session state and is safe for concurrent use.
type Sequencer struct {
	cfg     quote.PricingConfiguration
	catalog *quote.CatalogSnapshot
	now     func() time.Time
}

type Option func(*Sequencer)

// WithClock overrides the clock used for the event date check.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

func NewSequencer(cfg quote.PricingConfiguration, catalog *quote.CatalogSnapshot, opts ...Option) *Sequencer {
	if catalog == nil {
		catalog = quote.NewCatalogSnapshot(quote.CatalogData{})
	}
	s := &Sequencer{cfg: cfg, catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanAdvance reports whether the fields owned by step are satisfied.
func (s *Sequencer) CanAdvance(step Step, m *quote.SelectionModel) bool {
	return s.Validate(step, m) == nil
}

// Validate checks only the fields owned by step. Violations come back as a
// *quote.ValidationError naming every offending field.
func (s *Sequencer) Validate(step Step, m *quote.SelectionModel) error {
	if m == nil {
		return quote.NewValidationError("service_variant", "no selection in progress")
	}
	if Index(m.Variant, step) < 0 && step != StepIntro {
		return &quote.ValidationError{
			Step:   string(step),
			Fields: []quote.FieldError{{Field: "step", Message: fmt.Sprintf("%s is not part of the %s wizard", step, m.Variant)}},
		}
	}

	verr := &quote.ValidationError{Step: string(step)}
	switch step {
	case StepIntro:
		if !m.Variant.Valid() {
			verr.Add("service_variant", "choose a service")
		}
	case StepBasePackage:
		s.validateBasePackage(m, verr)
	case StepMealSelection:
		s.validateMeals(m, verr)
	case StepBuffetSelection:
		s.validateBuffets(m, verr)
	case StepBeverageSelection:
		s.validateMinimums(m, verr, quote.CategoryBeverage, quote.CategoryBeverageSize)
	case StepAddOns:
		s.validateAddOns(m, verr)
	case StepContact:
		validateContact(m.Contact, verr)
	}
	return verr.OrNil()
}

func (s *Sequencer) validateBasePackage(m *quote.SelectionModel, verr *quote.ValidationError) {
	vc, err := s.cfg.Variant(m.Variant)
	if err != nil {
		verr.Add("service_variant", err.Error())
		return
	}

	if m.EventDate.IsZero() {
		verr.Add("event_date", "event date is required")
	} else {
		today := s.now().Truncate(24 * time.Hour)
		if m.EventDate.Before(today) {
			verr.Add("event_date", "event date must not be in the past")
		}
	}

	if m.GuestCount < vc.MinGuests || m.GuestCount > vc.MaxGuests {
		verr.Add("guest_count", fmt.Sprintf("guest count must be between %d and %d", vc.MinGuests, vc.MaxGuests))
	}
	if m.DurationHours < vc.MinDuration || m.DurationHours > vc.MaxDuration {
		verr.Add("duration_hours", fmt.Sprintf("duration must be between %d and %d hours", vc.MinDuration, vc.MaxDuration))
	}

	if m.Variant.HasDelivery() {
		if !ValidPostalCode(m.PostalCode) {
			verr.Add("postal_code", "postal code must be exactly 5 digits")
		}
	} else if m.PostalCode != "" {
		verr.Add("postal_code", "postal code only applies to the mobile trailer")
	}
}

func (s *Sequencer) validateMeals(m *quote.SelectionModel, verr *quote.ValidationError) {
	signature := m.CategoryQuantity(quote.CategorySignatureDish)
	if signature > 0 && m.SignatureDishType == "" {
		verr.Add("signature_dish_type", "choose a signature dish type")
	}
	if m.SignatureDishType != "" {
		if families := s.catalog.Families(); len(families) > 0 && !contains(families, m.SignatureDishType) {
			verr.Add("signature_dish_type", fmt.Sprintf("unknown signature dish type %q", m.SignatureDishType))
		}
	}
	for _, ref := range m.Lines.Refs() {
		if ref.Category != quote.CategorySignatureDish {
			continue
		}
		p, ok := s.catalog.Product(ref.Category, ref.ID)
		if ok && p.Family != "" && p.Family != m.SignatureDishType {
			verr.Add(ref.String(), fmt.Sprintf("%s belongs to the %s menu", p.Name, p.Family))
		}
	}

	if err := m.CheckOptionCaps(); err != nil {
		if ve, ok := err.(*quote.ValidationError); ok {
			verr.Fields = append(verr.Fields, ve.Fields...)
		}
	}

	s.validateMinimums(m, verr, quote.CategorySignatureDish, quote.CategoryMiniMenu, quote.CategoryAccompaniment)
}

func (s *Sequencer) validateBuffets(m *quote.SelectionModel, verr *quote.ValidationError) {
	if !m.BuffetType.Valid() {
		verr.Add("buffet_type", fmt.Sprintf("unknown buffet type %q", m.BuffetType))
		return
	}
	for _, c := range []quote.Category{quote.CategoryBuffetSavory, quote.CategoryBuffetSweet} {
		if m.CategoryQuantity(c) > 0 && !m.BuffetType.Includes(c) {
			verr.Add("buffet_type", fmt.Sprintf("%s items are selected but the buffet type excludes them", c))
		}
	}
	s.validateMinimums(m, verr, quote.CategoryBuffetSavory, quote.CategoryBuffetSweet)
}

func (s *Sequencer) validateAddOns(m *quote.SelectionModel, verr *quote.ValidationError) {
	for _, ref := range m.Lines.Refs() {
		if ref.Category == quote.CategoryGame && m.Lines[ref] > 1 {
			verr.Add(ref.String(), "a game is either on or off")
		}
		if ref.Category == quote.CategoryKeg && ref.SizeLiters > 0 {
			if _, ok := s.catalog.KegSizePrice(ref.ID, ref.SizeLiters); !ok {
				verr.Add(ref.String(), fmt.Sprintf("keg size %d L is not offered", ref.SizeLiters))
			}
		}
	}
	s.validateMinimums(m, verr, quote.CategoryKeg, quote.CategoryGame)
}

// validateMinimums applies the per-category minimum quantity rule: a category
// left empty is fine, a started one must reach its minimum.
func (s *Sequencer) validateMinimums(m *quote.SelectionModel, verr *quote.ValidationError, cats ...quote.Category) {
	vc, err := s.cfg.Variant(m.Variant)
	if err != nil {
		return
	}
	for _, c := range cats {
		min := vc.MinQuantity(c)
		if min <= 0 {
			continue
		}
		if got := m.CategoryQuantity(c); got > 0 && got < min {
			verr.Add(string(c), fmt.Sprintf("at least %d required, %d selected", min, got))
		}
	}
}

func validateContact(c quote.Contact, verr *quote.ValidationError) {
	if strings.TrimSpace(c.FirstName) == "" {
		verr.Add("first_name", "first name is required")
	}
	if strings.TrimSpace(c.LastName) == "" {
		verr.Add("last_name", "last name is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		verr.Add("email", "email is required")
	} else if !ValidEmail(c.Email) {
		verr.Add("email", "email address is not valid")
	}
	if strings.TrimSpace(c.Phone) == "" {
		verr.Add("phone", "phone is required")
	} else if !ValidPhoneNumber(c.Phone) {
		verr.Add("phone", "phone number is not valid")
	}
}

// ValidPostalCode accepts exactly five ASCII digits.
func ValidPostalCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidEmail accepts a bare address with a dotted domain.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// ValidPhoneNumber checks for 10 to 15 digits and rejects obvious fakes.
func ValidPhoneNumber(phone string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	badNumbers := map[string]bool{
		"0000000000": true,
		"1111111111": true,
		"1234567890": true,
		"9999999999": true,
		"0123456789": true,
	}
	if badNumbers[cleaned] {
		return false
	}

	first := rune(strings.TrimSpace(phone)[0])
	return first == '+' || first == '(' || unicode.IsDigit(first)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
