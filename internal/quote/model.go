package quote

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ProductRef identifies one priced selection. SizeLiters is only set for kegs
// ordered in a specific size; for beverage_size lines ID is the size variant id.
type ProductRef struct {
	Category   Category
	ID         int64
	SizeLiters int
}

// MarshalText lets ProductRef be used as a JSON object key ("keg:12:20").
func (r ProductRef) MarshalText() ([]byte, error) {
	if r.SizeLiters > 0 {
		return []byte(fmt.Sprintf("%s:%d:%d", r.Category, r.ID, r.SizeLiters)), nil
	}
	return []byte(fmt.Sprintf("%s:%d", r.Category, r.ID)), nil
}

func (r *ProductRef) UnmarshalText(b []byte) error {
	parts := strings.Split(string(b), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("product ref %q: want category:id[:liters]", b)
	}
	cat := Category(parts[0])
	if !cat.Valid() {
		return fmt.Errorf("product ref %q: unknown category", b)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("product ref %q: %w", b, err)
	}
	ref := ProductRef{Category: cat, ID: id}
	if len(parts) == 3 {
		liters, err := strconv.Atoi(parts[2])
		if err != nil {
			return fmt.Errorf("product ref %q: %w", b, err)
		}
		ref.SizeLiters = liters
	}
	*r = ref
	return nil
}

func (r ProductRef) String() string {
	b, _ := r.MarshalText()
	return string(b)
}

// Less orders refs by category display order, then id, then size.
func (r ProductRef) Less(o ProductRef) bool {
	if r.Category != o.Category {
		return r.Category.Order() < o.Category.Order()
	}
	if r.ID != o.ID {
		return r.ID < o.ID
	}
	return r.SizeLiters < o.SizeLiters
}

// OptionRef is an accompaniment option chosen under accompaniment ProductID.
type OptionRef struct {
	ProductID int64
	OptionID  int64
}

func (r OptionRef) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%d", r.ProductID, r.OptionID)), nil
}

func (r *OptionRef) UnmarshalText(b []byte) error {
	ids, err := parseIDs(string(b), 2)
	if err != nil {
		return fmt.Errorf("option ref %q: %w", b, err)
	}
	*r = OptionRef{ProductID: ids[0], OptionID: ids[1]}
	return nil
}

// SubOptionRef is a suboption nested under an option.
type SubOptionRef struct {
	ProductID   int64
	OptionID    int64
	SubOptionID int64
}

// Option returns the parent option ref.
func (r SubOptionRef) Option() OptionRef {
	return OptionRef{ProductID: r.ProductID, OptionID: r.OptionID}
}

func (r SubOptionRef) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%d:%d", r.ProductID, r.OptionID, r.SubOptionID)), nil
}

func (r *SubOptionRef) UnmarshalText(b []byte) error {
	ids, err := parseIDs(string(b), 3)
	if err != nil {
		return fmt.Errorf("suboption ref %q: %w", b, err)
	}
	*r = SubOptionRef{ProductID: ids[0], OptionID: ids[1], SubOptionID: ids[2]}
	return nil
}

func parseIDs(s string, n int) ([]int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d ids", n)
	}
	ids := make([]int64, n)
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = v
	}
	return ids, nil
}

// LineSelections maps each chosen product to its quantity. Zero quantities
// are never stored.
type LineSelections map[ProductRef]int

// Refs returns the refs in display order.
func (l LineSelections) Refs() []ProductRef {
	refs := make([]ProductRef, 0, len(l))
	for ref := range l {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}

type AddOns struct {
	TapBeerRequested bool `json:"tap_beer_requested"`
	GamesRequested   bool `json:"games_requested"`
}

type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message,omitempty"`
}

// SelectionModel is everything the customer chose in one wizard session.
type SelectionModel struct {
	Variant           ServiceVariant       `json:"variant"`
	EventDate         time.Time            `json:"event_date"`
	DurationHours     int                  `json:"duration_hours"`
	GuestCount        int                  `json:"guest_count"`
	PostalCode        string               `json:"postal_code,omitempty"`
	SignatureDishType string               `json:"signature_dish_type,omitempty"`
	Lines             LineSelections       `json:"lines"`
	Options           map[OptionRef]int    `json:"options"`
	SubOptions        map[SubOptionRef]int `json:"sub_options"`
	BuffetType        BuffetType           `json:"buffet_type,omitempty"`
	AddOns            AddOns               `json:"add_ons"`
	Contact           Contact              `json:"contact"`
}

// NewSelectionModel starts an empty model for a variant.
func NewSelectionModel(v ServiceVariant) *SelectionModel {
	return &SelectionModel{
		Variant:    v,
		Lines:      LineSelections{},
		Options:    map[OptionRef]int{},
		SubOptions: map[SubOptionRef]int{},
		BuffetType: BuffetNone,
	}
}

// Clone returns a deep copy.
func (m *SelectionModel) Clone() *SelectionModel {
	c := *m
	c.Lines = make(LineSelections, len(m.Lines))
	for k, v := range m.Lines {
		c.Lines[k] = v
	}
	c.Options = make(map[OptionRef]int, len(m.Options))
	for k, v := range m.Options {
		c.Options[k] = v
	}
	c.SubOptions = make(map[SubOptionRef]int, len(m.SubOptions))
	for k, v := range m.SubOptions {
		c.SubOptions[k] = v
	}
	return &c
}

func (m *SelectionModel) ensureMaps() {
	if m.Lines == nil {
		m.Lines = LineSelections{}
	}
	if m.Options == nil {
		m.Options = map[OptionRef]int{}
	}
	if m.SubOptions == nil {
		m.SubOptions = map[SubOptionRef]int{}
	}
}

// Quantity returns the quantity of one line.
func (m *SelectionModel) Quantity(ref ProductRef) int {
	return m.Lines[ref]
}

// CategoryQuantity sums the quantities of every line in a category.
func (m *SelectionModel) CategoryQuantity(c Category) int {
	total := 0
	for ref, q := range m.Lines {
		if ref.Category == c {
			total += q
		}
	}
	return total
}

// HasKegs reports whether any keg line has a positive quantity.
func (m *SelectionModel) HasKegs() bool {
	return m.CategoryQuantity(CategoryKeg) > 0
}

// HasGames reports whether any individual game is toggled on.
func (m *SelectionModel) HasGames() bool {
	return m.CategoryQuantity(CategoryGame) > 0
}

// TapBeerWanted is the effective tap beer flag: explicit request or any keg.
func (m *SelectionModel) TapBeerWanted() bool {
	return m.AddOns.TapBeerRequested || m.HasKegs()
}

// GamesWanted is the effective games flag: explicit request or any game.
func (m *SelectionModel) GamesWanted() bool {
	return m.AddOns.GamesRequested || m.HasGames()
}

// SetSignatureDishType picks the menu family. Switching family drops the
// signature dish quantities of the previous family.
func (m *SelectionModel) SetSignatureDishType(t string) {
	m.ensureMaps()
	if t == m.SignatureDishType {
		return
	}
	for ref := range m.Lines {
		if ref.Category == CategorySignatureDish {
			delete(m.Lines, ref)
		}
	}
	m.SignatureDishType = t
}

// SetLine stores a quantity; zero removes the line. Lowering an accompaniment
// below the options chosen under it is rejected.
func (m *SelectionModel) SetLine(ref ProductRef, qty int) error {
	m.ensureMaps()
	field := ref.String()
	switch {
	case !ref.Category.Valid():
		return NewValidationError(field, "unknown category")
	case qty < 0:
		return NewValidationError(field, "quantity cannot be negative")
	case qty > 0 && ref.Category == CategorySignatureDish && m.SignatureDishType == "":
		return NewValidationError("signature_dish_type", "choose a signature dish type before selecting dishes")
	case qty > 0 && ref.Category.IsAddOn() && !m.Variant.HasDelivery():
		return NewValidationError(field, fmt.Sprintf("%s is only available for the mobile trailer", ref.Category))
	}

	if qty == 0 {
		delete(m.Lines, ref)
		if ref.Category == CategoryAccompaniment {
			m.dropOptions(ref.ID)
		}
		return nil
	}

	if ref.Category == CategoryAccompaniment {
		if used := m.optionSum(ref.ID); used > qty {
			return NewValidationError(field,
				fmt.Sprintf("quantity %d is below the %d options already chosen", qty, used))
		}
	}

	m.Lines[ref] = qty
	return nil
}

// SetOption stores an accompaniment option quantity. The options under one
// accompaniment can never outnumber the accompaniment itself.
func (m *SelectionModel) SetOption(ref OptionRef, qty int) error {
	m.ensureMaps()
	field := fmt.Sprintf("accompaniment:%d:option:%d", ref.ProductID, ref.OptionID)
	if qty < 0 {
		return NewValidationError(field, "quantity cannot be negative")
	}
	if qty == 0 {
		delete(m.Options, ref)
		m.dropSubOptions(ref)
		return nil
	}

	parent := m.Lines[ProductRef{Category: CategoryAccompaniment, ID: ref.ProductID}]
	if parent == 0 {
		return NewValidationError(field, "select the accompaniment before its options")
	}
	if total := m.optionSum(ref.ProductID) - m.Options[ref] + qty; total > parent {
		return NewValidationError(field,
			fmt.Sprintf("options total %d exceeds accompaniment quantity %d", total, parent))
	}
	if used := m.subOptionSum(ref); used > qty {
		return NewValidationError(field,
			fmt.Sprintf("quantity %d is below the %d suboptions already chosen", qty, used))
	}

	m.Options[ref] = qty
	return nil
}

// SetSubOption stores a suboption quantity, capped by its option's quantity.
func (m *SelectionModel) SetSubOption(ref SubOptionRef, qty int) error {
	m.ensureMaps()
	field := fmt.Sprintf("accompaniment:%d:option:%d:sub:%d", ref.ProductID, ref.OptionID, ref.SubOptionID)
	if qty < 0 {
		return NewValidationError(field, "quantity cannot be negative")
	}
	if qty == 0 {
		delete(m.SubOptions, ref)
		return nil
	}

	parent := m.Options[ref.Option()]
	if parent == 0 {
		return NewValidationError(field, "select the option before its suboptions")
	}
	if total := m.subOptionSum(ref.Option()) - m.SubOptions[ref] + qty; total > parent {
		return NewValidationError(field,
			fmt.Sprintf("suboptions total %d exceeds option quantity %d", total, parent))
	}

	m.SubOptions[ref] = qty
	return nil
}

// ClearOptions removes every option and suboption under one accompaniment.
func (m *SelectionModel) ClearOptions(productID int64) {
	m.ensureMaps()
	m.dropOptions(productID)
}

// CheckOptionCaps re-verifies the option hierarchy of the whole model. It is
// used on models that did not go through the setters (decoded snapshots).
func (m *SelectionModel) CheckOptionCaps() error {
	verr := &ValidationError{}

	parents := map[int64]bool{}
	for ref := range m.Options {
		parents[ref.ProductID] = true
	}
	ids := make([]int64, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		parent := m.Lines[ProductRef{Category: CategoryAccompaniment, ID: id}]
		if sum := m.optionSum(id); sum > parent {
			verr.Add(fmt.Sprintf("accompaniment:%d", id),
				fmt.Sprintf("options total %d exceeds accompaniment quantity %d", sum, parent))
		}
	}

	seen := map[OptionRef]bool{}
	for ref := range m.SubOptions {
		opt := ref.Option()
		if seen[opt] {
			continue
		}
		seen[opt] = true
		if sum := m.subOptionSum(opt); sum > m.Options[opt] {
			verr.Add(fmt.Sprintf("accompaniment:%d:option:%d", opt.ProductID, opt.OptionID),
				fmt.Sprintf("suboptions total %d exceeds option quantity %d", sum, m.Options[opt]))
		}
	}

	return verr.OrNil()
}

func (m *SelectionModel) optionSum(productID int64) int {
	total := 0
	for ref, q := range m.Options {
		if ref.ProductID == productID {
			total += q
		}
	}
	return total
}

func (m *SelectionModel) subOptionSum(opt OptionRef) int {
	total := 0
	for ref, q := range m.SubOptions {
		if ref.Option() == opt {
			total += q
		}
	}
	return total
}

func (m *SelectionModel) dropOptions(productID int64) {
	for ref := range m.Options {
		if ref.ProductID == productID {
			delete(m.Options, ref)
		}
	}
	for ref := range m.SubOptions {
		if ref.ProductID == productID {
			delete(m.SubOptions, ref)
		}
	}
}

func (m *SelectionModel) dropSubOptions(opt OptionRef) {
	for ref := range m.SubOptions {
		if ref.Option() == opt {
			delete(m.SubOptions, ref)
		}
	}
}

// Normalize restores the nil maps left by a bulk update or a decode.
// AddOns keep the customer's explicit choices; kegs and games are ORed in
// by TapBeerWanted and GamesWanted.
func (m *SelectionModel) Normalize() {
	m.ensureMaps()
}
