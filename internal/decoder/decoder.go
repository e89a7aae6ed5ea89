// Package decoder turns the flat key/value pairs posted by the wizard forms
// into typed selections. Keys that match nothing are kept aside in
// Result.Unclassified and never reach pricing.
package decoder

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"privatize-quote/internal/quote"
)

// Field names of the scalar wizard inputs.
const (
	FieldServiceVariant    = "service_variant"
	FieldEventDate         = "event_date"
	FieldDurationHours     = "duration_hours"
	FieldGuestCount        = "guest_count"
	FieldPostalCode        = "postal_code"
	FieldSignatureDishType = "signature_dish_type"
	FieldBuffetType        = "buffet_type"
	FieldTapBeer           = "tap_beer"
	FieldGames             = "games"
	FieldFirstName         = "first_name"
	FieldLastName          = "last_name"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldMessage           = "message"
)

const dateLayout = "2006-01-02"

// dates posted by the legacy forms
var altDateLayouts = []string{"02/01/2006", "02.01.2006"}

// prefixOrder lists categories longest first so that beverage_size_ is tried
// before beverage_ and a size variant is never read as a plain beverage.
var prefixOrder = func() []quote.Category {
	cats := append([]quote.Category(nil), quote.Categories...)
	sort.SliceStable(cats, func(i, j int) bool { return len(cats[i]) > len(cats[j]) })
	return cats
}()

// Scalars holds the non-product fields present in a submission. Nil means
// the field was not posted.
type Scalars struct {
	Variant           *quote.ServiceVariant
	EventDate         *time.Time
	DurationHours     *int
	GuestCount        *int
	PostalCode        *string
	SignatureDishType *string
	BuffetType        *quote.BuffetType
	TapBeer           *bool
	Games             *bool
	FirstName         *string
	LastName          *string
	Email             *string
	Phone             *string
	Message           *string
}

// Result is the typed delta decoded from one submission. A zero quantity
// means "not selected" and clears a previous selection when applied.
type Result struct {
	Scalars      Scalars
	Lines        map[quote.ProductRef]int
	Options      map[quote.OptionRef]int
	SubOptions   map[quote.SubOptionRef]int
	Unclassified map[string]string
}

func newResult() *Result {
	return &Result{
		Lines:        map[quote.ProductRef]int{},
		Options:      map[quote.OptionRef]int{},
		SubOptions:   map[quote.SubOptionRef]int{},
		Unclassified: map[string]string{},
	}
}

// Decoder decodes submissions against one catalog snapshot. It is immutable
// and safe for concurrent use.
type Decoder struct {
	catalog *quote.CatalogSnapshot
	names   *matcher
}

// New builds a decoder. aliases maps historical option names to the current
// display names.
func New(catalog *quote.CatalogSnapshot, aliases map[string]string) *Decoder {
	if catalog == nil {
		catalog = quote.NewCatalogSnapshot(quote.CatalogData{})
	}
	return &Decoder{catalog: catalog, names: newMatcher(aliases)}
}

// Decode reads every field. Unknown keys are collected, not rejected; a
// known key carrying a non-numeric quantity is a *quote.MalformedInputError.
func (d *Decoder) Decode(fields map[string]string) (*Result, error) {
	r := newResult()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		value := fields[rawKey]
		key := strings.ToLower(strings.TrimSpace(rawKey))

		handled, err := d.decodeScalar(key, value, r)
		if err != nil {
			return nil, err
		}
		if handled {
			continue
		}

		handled, err = d.decodeSelection(key, value, r)
		if err != nil {
			return nil, err
		}
		if !handled {
			r.Unclassified[rawKey] = value
		}
	}

	return r, nil
}

func (d *Decoder) decodeScalar(key, value string, r *Result) (bool, error) {
	s := &r.Scalars
	v := strings.TrimSpace(value)

	switch key {
	case FieldServiceVariant:
		if v == "" {
			return true, nil
		}
		variant, err := quote.ParseServiceVariant(v)
		if err != nil {
			return true, &quote.MalformedInputError{Field: key, Value: value, Msg: err.Error()}
		}
		s.Variant = &variant
	case FieldEventDate:
		if v == "" {
			return true, nil
		}
		t, err := parseDate(v)
		if err != nil {
			return true, &quote.MalformedInputError{Field: key, Value: value, Msg: "expected YYYY-MM-DD"}
		}
		s.EventDate = &t
	case FieldDurationHours:
		n, ok, err := parseInt(key, value)
		if err != nil || !ok {
			return true, err
		}
		s.DurationHours = &n
	case FieldGuestCount:
		n, ok, err := parseInt(key, value)
		if err != nil || !ok {
			return true, err
		}
		s.GuestCount = &n
	case FieldPostalCode:
		s.PostalCode = &v
	case FieldSignatureDishType:
		t := strings.ToLower(v)
		s.SignatureDishType = &t
	case FieldBuffetType:
		bt := quote.BuffetType(strings.ToLower(v))
		if bt == "" {
			bt = quote.BuffetNone
		}
		if !bt.Valid() {
			return true, &quote.MalformedInputError{Field: key, Value: value, Msg: "expected none, savory, sweet or both"}
		}
		s.BuffetType = &bt
	case FieldTapBeer:
		on, err := parseToggle(key, value)
		if err != nil {
			return true, err
		}
		s.TapBeer = &on
	case FieldGames:
		on, err := parseToggle(key, value)
		if err != nil {
			return true, err
		}
		s.Games = &on
	case FieldFirstName:
		s.FirstName = &v
	case FieldLastName:
		s.LastName = &v
	case FieldEmail:
		s.Email = &v
	case FieldPhone:
		s.Phone = &v
	case FieldMessage:
		s.Message = &v
	default:
		return false, nil
	}
	return true, nil
}

// decodeSelection handles the category keyed product fields. It returns false
// when the key shape is not recognized or names nothing in the catalog.
func (d *Decoder) decodeSelection(key, value string, r *Result) (bool, error) {
	for _, cat := range prefixOrder {
		prefix := string(cat) + "_"
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]

		switch cat {
		case quote.CategoryGame:
			return d.decodeGame(key, rest, value, r)
		case quote.CategoryKeg:
			return d.decodeKeg(key, rest, value, r)
		case quote.CategoryBeverageSize:
			return d.decodeBeverageSize(key, rest, value, r)
		case quote.CategoryAccompaniment:
			return d.decodeAccompaniment(key, rest, value, r)
		default:
			return d.decodeFlat(cat, key, rest, value, r)
		}
	}
	return false, nil
}

// {category}_{productId}_qty
func (d *Decoder) decodeFlat(cat quote.Category, key, rest, value string, r *Result) (bool, error) {
	body, ok := strings.CutSuffix(rest, "_qty")
	if !ok {
		return false, nil
	}
	id, ok := parseID(body)
	if !ok {
		return false, nil
	}
	qty, err := parseQty(key, value)
	if err != nil {
		return true, err
	}
	if _, known := d.catalog.Product(cat, id); !known {
		return false, nil
	}
	r.Lines[quote.ProductRef{Category: cat, ID: id}] = qty
	return true, nil
}

// game_{productId}_qty or the checkbox form game_{productId}
func (d *Decoder) decodeGame(key, rest, value string, r *Result) (bool, error) {
	var (
		qty int
		err error
	)
	body, isQty := strings.CutSuffix(rest, "_qty")
	id, ok := parseID(body)
	if !ok {
		return false, nil
	}
	if isQty {
		qty, err = parseQty(key, value)
	} else {
		var on bool
		on, err = parseToggle(key, value)
		if on {
			qty = 1
		}
	}
	if err != nil {
		return true, err
	}
	if _, known := d.catalog.Product(quote.CategoryGame, id); !known {
		return false, nil
	}
	r.Lines[quote.ProductRef{Category: quote.CategoryGame, ID: id}] = qty
	return true, nil
}

// keg_{productId}_{n}l_qty, falling back to keg_{productId}_qty
func (d *Decoder) decodeKeg(key, rest, value string, r *Result) (bool, error) {
	body, ok := strings.CutSuffix(rest, "_qty")
	if !ok {
		return false, nil
	}

	ref := quote.ProductRef{Category: quote.CategoryKeg}
	idPart, sizePart, hasSize := strings.Cut(body, "_")
	id, ok := parseID(idPart)
	if !ok {
		return false, nil
	}
	ref.ID = id
	if hasSize {
		liters, ok := parseLiters(sizePart)
		if !ok {
			return false, nil
		}
		ref.SizeLiters = liters
	}

	qty, err := parseQty(key, value)
	if err != nil {
		return true, err
	}
	if _, known := d.catalog.Product(quote.CategoryKeg, id); !known {
		return false, nil
	}
	r.Lines[ref] = qty
	return true, nil
}

// beverage_size_{sizeId}_qty
func (d *Decoder) decodeBeverageSize(key, rest, value string, r *Result) (bool, error) {
	body, ok := strings.CutSuffix(rest, "_qty")
	if !ok {
		return false, nil
	}
	id, ok := parseID(body)
	if !ok {
		return false, nil
	}
	qty, err := parseQty(key, value)
	if err != nil {
		return true, err
	}
	sz, known := d.catalog.BeverageSize(id)
	if !known {
		return false, nil
	}
	if _, isBeverage := d.catalog.Product(quote.CategoryBeverage, sz.ProductID); !isBeverage {
		return false, nil
	}
	r.Lines[quote.ProductRef{Category: quote.CategoryBeverageSize, ID: id}] = qty
	return true, nil
}

// accompaniment_{productId}_qty
// accompaniment_{productId}_opt_{option}_qty
// accompaniment_{productId}_opt_{option}_sub_{suboption}_qty
func (d *Decoder) decodeAccompaniment(key, rest, value string, r *Result) (bool, error) {
	body, ok := strings.CutSuffix(rest, "_qty")
	if !ok {
		return false, nil
	}
	idPart, optPart, hasOpt := strings.Cut(body, "_opt_")
	id, ok := parseID(idPart)
	if !ok {
		return false, nil
	}

	qty, err := parseQty(key, value)
	if err != nil {
		return true, err
	}
	if _, known := d.catalog.Product(quote.CategoryAccompaniment, id); !known {
		return false, nil
	}
	if !hasOpt {
		r.Lines[quote.ProductRef{Category: quote.CategoryAccompaniment, ID: id}] = qty
		return true, nil
	}

	tree := d.catalog.OptionTree(id)
	if optID, ok := d.names.resolve(optPart, optionNames(tree)); ok {
		r.Options[quote.OptionRef{ProductID: id, OptionID: optID}] = qty
		return true, nil
	}

	ref, ok := d.resolveSubOption(id, optPart, tree)
	if !ok {
		return false, nil
	}
	r.SubOptions[ref] = qty
	return true, nil
}

// resolveSubOption splits "{option}_sub_{suboption}" at each "_sub_" in
// turn, since option names may themselves contain "sub".
func (d *Decoder) resolveSubOption(productID int64, optPart string, tree []quote.Option) (quote.SubOptionRef, bool) {
	const sep = "_sub_"
	for from := 0; ; {
		i := strings.Index(optPart[from:], sep)
		if i < 0 {
			return quote.SubOptionRef{}, false
		}
		at := from + i
		optName, subName := optPart[:at], optPart[at+len(sep):]
		from = at + 1

		optID, ok := d.names.resolve(optName, optionNames(tree))
		if !ok {
			continue
		}
		opt, _ := d.catalog.Option(productID, optID)
		if subID, ok := d.names.resolve(subName, subOptionNames(opt.SubOptions)); ok {
			return quote.SubOptionRef{ProductID: productID, OptionID: optID, SubOptionID: subID}, true
		}
	}
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err == nil {
		return t, nil
	}
	for _, layout := range altDateLayouts {
		if alt, altErr := time.Parse(layout, v); altErr == nil {
			return alt, nil
		}
	}
	return time.Time{}, err
}

func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// "20l" -> 20
func parseLiters(s string) (int, bool) {
	num, ok := strings.CutSuffix(s, "l")
	if !ok {
		return 0, false
	}
	id, ok := parseID(num)
	if !ok {
		return 0, false
	}
	return int(id), true
}

// parseInt reads a scalar integer. Blank means not posted.
func parseInt(field, value string) (int, bool, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, &quote.MalformedInputError{Field: field, Value: value, Msg: "expected a whole number"}
	}
	return n, true, nil
}

// parseQty reads a product quantity. Blank, zero and negative values all mean
// "not selected"; anything that is not an integer is malformed.
func parseQty(field, value string) (int, error) {
	n, ok, err := parseInt(field, value)
	if err != nil {
		return 0, err
	}
	if !ok || n <= 0 {
		return 0, nil
	}
	return n, nil
}

func parseToggle(field, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "on", "true", "yes", "oui", "checked":
		return true, nil
	case "", "0", "off", "false", "no", "non":
		return false, nil
	}
	return false, &quote.MalformedInputError{Field: field, Value: value, Msg: "expected an on/off value"}
}
