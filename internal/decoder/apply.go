package decoder

import (
	"fmt"
	"sort"
	"strconv"

	"privatize-quote/internal/quote"
)

// Apply merges a decoded delta into a copy of m and returns the copy. m is
// left untouched when any setter rejects the delta.
func Apply(m *quote.SelectionModel, r *Result) (*quote.SelectionModel, error) {
	if r == nil {
		return m.Clone(), nil
	}
	if r.Scalars.Variant != nil && *r.Scalars.Variant != m.Variant {
		return nil, quote.NewValidationError(FieldServiceVariant,
			"switching service discards the selection and must be done explicitly")
	}

	out := m.Clone()
	applyScalars(out, r.Scalars)

	verr := &quote.ValidationError{}
	collect := func(err error) {
		if err == nil {
			return
		}
		if ve, ok := err.(*quote.ValidationError); ok {
			verr.Fields = append(verr.Fields, ve.Fields...)
			return
		}
		verr.Add("selection", err.Error())
	}

	subRefs := sortedSubOptionRefs(r.SubOptions)
	optRefs := sortedOptionRefs(r.Options)

	// Decreases first so a lowered parent never trips over children that the
	// same submission is also lowering.
	for _, ref := range subRefs {
		if q := r.SubOptions[ref]; q < out.SubOptions[ref] {
			collect(out.SetSubOption(ref, q))
		}
	}
	for _, ref := range optRefs {
		if q := r.Options[ref]; q < out.Options[ref] {
			collect(out.SetOption(ref, q))
		}
	}
	for _, ref := range sortedProductRefs(r.Lines) {
		collect(out.SetLine(ref, r.Lines[ref]))
	}
	for _, ref := range optRefs {
		if q := r.Options[ref]; q > out.Options[ref] {
			collect(out.SetOption(ref, q))
		}
	}
	for _, ref := range subRefs {
		if q := r.SubOptions[ref]; q > out.SubOptions[ref] {
			collect(out.SetSubOption(ref, q))
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	out.Normalize()
	return out, nil
}

func applyScalars(m *quote.SelectionModel, s Scalars) {
	if s.EventDate != nil {
		m.EventDate = *s.EventDate
	}
	if s.DurationHours != nil {
		m.DurationHours = *s.DurationHours
	}
	if s.GuestCount != nil {
		m.GuestCount = *s.GuestCount
	}
	if s.PostalCode != nil {
		m.PostalCode = *s.PostalCode
	}
	if s.SignatureDishType != nil {
		m.SetSignatureDishType(*s.SignatureDishType)
	}
	if s.BuffetType != nil {
		m.BuffetType = *s.BuffetType
	}
	if s.TapBeer != nil {
		m.AddOns.TapBeerRequested = *s.TapBeer
	}
	if s.Games != nil {
		m.AddOns.GamesRequested = *s.Games
	}
	if s.FirstName != nil {
		m.Contact.FirstName = *s.FirstName
	}
	if s.LastName != nil {
		m.Contact.LastName = *s.LastName
	}
	if s.Email != nil {
		m.Contact.Email = *s.Email
	}
	if s.Phone != nil {
		m.Contact.Phone = *s.Phone
	}
	if s.Message != nil {
		m.Contact.Message = *s.Message
	}
}

// Encode serializes a model into the field layout Decode reads. Options are
// written by stable id.
func Encode(m *quote.SelectionModel) map[string]string {
	f := map[string]string{
		FieldServiceVariant: string(m.Variant),
		FieldDurationHours:  strconv.Itoa(m.DurationHours),
		FieldGuestCount:     strconv.Itoa(m.GuestCount),
		FieldBuffetType:     string(m.BuffetType),
		FieldTapBeer:        toggle(m.AddOns.TapBeerRequested),
		FieldGames:          toggle(m.AddOns.GamesRequested),
		FieldFirstName:      m.Contact.FirstName,
		FieldLastName:       m.Contact.LastName,
		FieldEmail:          m.Contact.Email,
		FieldPhone:          m.Contact.Phone,
		FieldMessage:        m.Contact.Message,
	}
	if !m.EventDate.IsZero() {
		f[FieldEventDate] = m.EventDate.Format(dateLayout)
	}
	if m.PostalCode != "" {
		f[FieldPostalCode] = m.PostalCode
	}
	if m.SignatureDishType != "" {
		f[FieldSignatureDishType] = m.SignatureDishType
	}

	for ref, q := range m.Lines {
		if q > 0 {
			f[LineKey(ref)] = strconv.Itoa(q)
		}
	}
	for ref, q := range m.Options {
		if q > 0 {
			f[OptionKey(ref)] = strconv.Itoa(q)
		}
	}
	for ref, q := range m.SubOptions {
		if q > 0 {
			f[SubOptionKey(ref)] = strconv.Itoa(q)
		}
	}
	return f
}

// LineKey returns the form field name of a product line.
func LineKey(ref quote.ProductRef) string {
	if ref.Category == quote.CategoryKeg && ref.SizeLiters > 0 {
		return fmt.Sprintf("%s_%d_%dl_qty", ref.Category, ref.ID, ref.SizeLiters)
	}
	return fmt.Sprintf("%s_%d_qty", ref.Category, ref.ID)
}

// OptionKey returns the form field name of an accompaniment option.
func OptionKey(ref quote.OptionRef) string {
	return fmt.Sprintf("%s_%d_opt_%d_qty", quote.CategoryAccompaniment, ref.ProductID, ref.OptionID)
}

// SubOptionKey returns the form field name of a suboption.
func SubOptionKey(ref quote.SubOptionRef) string {
	return fmt.Sprintf("%s_%d_opt_%d_sub_%d_qty", quote.CategoryAccompaniment, ref.ProductID, ref.OptionID, ref.SubOptionID)
}

func toggle(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func sortedProductRefs(m map[quote.ProductRef]int) []quote.ProductRef {
	refs := make([]quote.ProductRef, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}

func sortedOptionRefs(m map[quote.OptionRef]int) []quote.OptionRef {
	refs := make([]quote.OptionRef, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ProductID != refs[j].ProductID {
			return refs[i].ProductID < refs[j].ProductID
		}
		return refs[i].OptionID < refs[j].OptionID
	})
	return refs
}

func sortedSubOptionRefs(m map[quote.SubOptionRef]int) []quote.SubOptionRef {
	refs := make([]quote.SubOptionRef, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.OptionID != b.OptionID {
			return a.OptionID < b.OptionID
		}
		return a.SubOptionID < b.SubOptionID
	})
	return refs
}
