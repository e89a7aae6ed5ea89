package quote

import (
	"context"
	"sort"
)

// Product is one catalog entry. Family groups signature dishes into the two
// mutually exclusive menu families.
type Product struct {
	ID       int64    `json:"id" db:"id"`
	Category Category `json:"category" db:"category"`
	Name     string   `json:"name" db:"name"`
	Family   string   `json:"family,omitempty" db:"family"`
	Price    Money    `json:"price" db:"price"`
	Active   bool     `json:"active" db:"active"`
}

// SubOption is a priced modifier nested under an Option.
type SubOption struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Price   Money    `json:"price"`
	Aliases []string `json:"aliases,omitempty"`
}

// Option is a priced modifier attached to an accompaniment.
type Option struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Price      Money       `json:"price"`
	Aliases    []string    `json:"aliases,omitempty"`
	SubOptions []SubOption `json:"sub_options,omitempty"`
}

// BeverageSize is a size variant of a beverage (centiliters) or of a keg
// (liters).
type BeverageSize struct {
	ID         int64 `json:"id" db:"id"`
	ProductID  int64 `json:"product_id" db:"product_id"`
	SizeCl     int   `json:"size_cl,omitempty" db:"size_cl"`
	SizeLiters int   `json:"size_liters,omitempty" db:"size_liters"`
	Price      Money `json:"price" db:"price"`
}

// CatalogProvider is the read side of the product catalog.
type CatalogProvider interface {
	ListProducts(ctx context.Context, category Category) ([]Product, error)
	GetOptionTree(ctx context.Context, productID int64) ([]Option, error)
	GetBeverageSizes(ctx context.Context, productID int64) ([]BeverageSize, error)
}

type productKey struct {
	category Category
	id       int64
}

// CatalogSnapshot is an immutable read of products, option trees and size
// variants taken before a calculation.
type CatalogSnapshot struct {
	products map[productKey]Product
	options  map[int64][]Option
	sizes    map[int64]BeverageSize
	byProd   map[int64][]BeverageSize
}

// CatalogData is the serializable form of a snapshot, used for caching.
type CatalogData struct {
	Products []Product          `json:"products"`
	Options  map[int64][]Option `json:"options"`
	Sizes    []BeverageSize     `json:"sizes"`
}

// NewCatalogSnapshot indexes catalog data. Inputs are copied.
func NewCatalogSnapshot(data CatalogData) *CatalogSnapshot {
	s := &CatalogSnapshot{
		products: make(map[productKey]Product, len(data.Products)),
		options:  make(map[int64][]Option, len(data.Options)),
		sizes:    make(map[int64]BeverageSize, len(data.Sizes)),
		byProd:   map[int64][]BeverageSize{},
	}
	for _, p := range data.Products {
		s.products[productKey{p.Category, p.ID}] = p
	}
	for id, opts := range data.Options {
		cp := make([]Option, len(opts))
		for i, o := range opts {
			o.SubOptions = append([]SubOption(nil), o.SubOptions...)
			o.Aliases = append([]string(nil), o.Aliases...)
			cp[i] = o
		}
		s.options[id] = cp
	}
	for _, sz := range data.Sizes {
		s.sizes[sz.ID] = sz
		s.byProd[sz.ProductID] = append(s.byProd[sz.ProductID], sz)
	}
	return s
}

// Data returns the serializable form.
func (s *CatalogSnapshot) Data() CatalogData {
	data := CatalogData{Options: map[int64][]Option{}}
	for _, p := range s.products {
		data.Products = append(data.Products, p)
	}
	sort.Slice(data.Products, func(i, j int) bool {
		a, b := data.Products[i], data.Products[j]
		if a.Category != b.Category {
			return a.Category.Order() < b.Category.Order()
		}
		return a.ID < b.ID
	})
	for id, opts := range s.options {
		data.Options[id] = opts
	}
	for _, sz := range s.sizes {
		data.Sizes = append(data.Sizes, sz)
	}
	sort.Slice(data.Sizes, func(i, j int) bool { return data.Sizes[i].ID < data.Sizes[j].ID })
	return data
}

// Product looks a product up in its category, active or not.
func (s *CatalogSnapshot) Product(c Category, id int64) (Product, bool) {
	p, ok := s.products[productKey{c, id}]
	return p, ok
}

// Products lists a category's products ordered by id.
func (s *CatalogSnapshot) Products(c Category) []Product {
	var out []Product
	for k, p := range s.products {
		if k.category == c {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OptionTree returns the options configured under an accompaniment.
func (s *CatalogSnapshot) OptionTree(productID int64) []Option {
	return s.options[productID]
}

// Option finds one option of an accompaniment by id.
func (s *CatalogSnapshot) Option(productID, optionID int64) (Option, bool) {
	for _, o := range s.options[productID] {
		if o.ID == optionID {
			return o, true
		}
	}
	return Option{}, false
}

// BeverageSize finds a size variant by its own id.
func (s *CatalogSnapshot) BeverageSize(id int64) (BeverageSize, bool) {
	sz, ok := s.sizes[id]
	return sz, ok
}

// Sizes lists the size variants of one product.
func (s *CatalogSnapshot) Sizes(productID int64) []BeverageSize {
	return s.byProd[productID]
}

// KegSizePrice returns the size specific price of a keg.
func (s *CatalogSnapshot) KegSizePrice(productID int64, liters int) (Money, bool) {
	for _, sz := range s.byProd[productID] {
		if sz.SizeLiters == liters {
			return sz.Price, true
		}
	}
	return 0, false
}

// Families lists the signature dish families present in the catalog.
func (s *CatalogSnapshot) Families() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range s.Products(CategorySignatureDish) {
		if p.Family != "" && !seen[p.Family] {
			seen[p.Family] = true
			out = append(out, p.Family)
		}
	}
	sort.Strings(out)
	return out
}
