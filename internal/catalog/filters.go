package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Availability filter options. These match the labels shown to buyers,
// which is also how they arrive in deep-link query parameters.
const (
	AvailabilityInStock    = "In Stock"
	AvailabilityOutOfStock = "Out of Stock"
)

// SortKey names a product attribute the view can be ordered by.
type SortKey string

const (
	SortNone   SortKey = ""
	SortName   SortKey = "name"
	SortPrice  SortKey = "price"
	SortRating SortKey = "rating"
)

// SortBy combines a sort key with a direction. The zero value means
// "no sort": the filtered order is kept as-is.
type SortBy struct {
	Key  SortKey
	Desc bool
}

// ParseSortBy parses the wire form of a sort selection, "key,order"
// (for example "price,asc" or "name,desc"). It returns false for
// anything it does not recognize; the empty string parses as SortNone.
func ParseSortBy(s string) (SortBy, bool) {
	if s == "" {
		return SortBy{}, true
	}
	key, order, ok := strings.Cut(s, ",")
	if !ok {
		return SortBy{}, false
	}
	var sb SortBy
	switch SortKey(key) {
	case SortName, SortPrice, SortRating:
		sb.Key = SortKey(key)
	default:
		return SortBy{}, false
	}
	switch order {
	case "asc":
	case "desc":
		sb.Desc = true
	default:
		return SortBy{}, false
	}
	return sb, true
}

// Filters is the complete, materialized filter state for one view
// computation. How it was constructed (query parameters, UI state) is
// the caller's concern.
type Filters struct {
	// Search is matched case-insensitively as a substring against the
	// product name, description, and the decimal form of the id.
	Search string

	// Availability holds zero, one, or both of AvailabilityInStock and
	// AvailabilityOutOfStock. Selecting both passes every product
	// through, same as selecting neither.
	Availability []string

	// PriceFrom and PriceTo bound the effective price, inclusive. An
	// empty or unparseable bound leaves that side unbounded.
	PriceFrom string
	PriceTo   string

	// Colors holds lower-cased color names; a product matches when any
	// of its own colors equals one of them, ignoring case.
	Colors []string

	// Rating is the minimum rating to keep; zero disables the filter.
	Rating float64

	SortBy SortBy
}

// priceBound parses one side of the price range. Empty and unparseable
// strings both mean "unbounded on this side"; malformed input never
// becomes an error.
func priceBound(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
