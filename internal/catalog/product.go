// Package catalog holds the product model and the pure
// filter/sort/paginate pipeline that turns the full product list into
// ordered, paged views.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is a single catalog record. Products are loaded once per
// refresh from an external feed and treated as read-only afterwards.
// Most fields are optional in the feed; optional scalars are modeled as
// pointers or NullDecimal so that "absent" is distinguishable from zero.
type Product struct {
	ID               int
	Name             string
	Price            decimal.NullDecimal
	DiscountedPrice  decimal.NullDecimal
	Category         string
	Division         string
	Image            string
	InStock          *bool
	Colors           []string
	Sizes            []string
	Rating           *float64
	Description      string
	Material         string
	CareInstructions string
	MadeFor          []string
	Sustainability   []string
	Features         []string
}

// EffectivePrice returns the price a buyer would actually pay: the
// discounted price when present, otherwise the list price. The second
// return value is false when neither price is known.
//
// Every stage that needs a price goes through this method so the
// "discounted over list" rule lives in exactly one place.
func (p Product) EffectivePrice() (decimal.Decimal, bool) {
	if p.DiscountedPrice.Valid {
		return p.DiscountedPrice.Decimal, true
	}
	if p.Price.Valid {
		return p.Price.Decimal, true
	}
	return decimal.Decimal{}, false
}

// SortPrice returns the effective price, or zero when no price is known.
// Used only for ordering, never for filtering.
func (p Product) SortPrice() decimal.Decimal {
	if price, ok := p.EffectivePrice(); ok {
		return price
	}
	return decimal.Zero
}

// SortRating returns the rating, or zero when the product is unrated.
func (p Product) SortRating() float64 {
	if p.Rating != nil {
		return *p.Rating
	}
	return 0
}
