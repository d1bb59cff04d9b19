package catalog

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// View is one page of the filtered, sorted catalog.
type View struct {
	// PageItems is the slice of products on the requested page.
	PageItems []Product
	// TotalCount is the number of products that survived filtering.
	TotalCount int
	// TotalPages is ceil(TotalCount / pageSize); zero when nothing matched.
	TotalPages int
	// Page is the page actually served, after clamping.
	Page int
}

// ComputeView runs the full pipeline: search, availability, price
// range, color, and rating filters in that order, then a stable sort,
// then pagination. It is a pure function of its arguments — it never
// mutates products and never fails; malformed per-product data degrades
// to "does not match" per stage.
//
// Sort must see the fully filtered set, which is why it runs last
// before pagination.
func ComputeView(products []Product, f Filters, page, pageSize int) View {
	filtered := applySearch(products, f.Search)
	filtered = applyAvailability(filtered, f.Availability)
	filtered = applyPriceRange(filtered, f.PriceFrom, f.PriceTo)
	filtered = applyColors(filtered, f.Colors)
	filtered = applyRating(filtered, f.Rating)
	filtered = applySort(filtered, f.SortBy)
	return paginate(filtered, page, pageSize)
}

func applySearch(products []Product, search string) []Product {
	if search == "" {
		return products
	}
	term := strings.ToLower(search)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		switch {
		case strings.Contains(strings.ToLower(p.Name), term),
			p.Description != "" && strings.Contains(strings.ToLower(p.Description), term),
			strings.Contains(strconv.Itoa(p.ID), term):
			out = append(out, p)
		}
	}
	return out
}

func applyAvailability(products []Product, availability []string) []Product {
	inStock := slices.Contains(availability, AvailabilityInStock)
	outOfStock := slices.Contains(availability, AvailabilityOutOfStock)

	// Neither selected means no filter; both selected passes everything
	// through as well, matching the shipped storefront behaviour.
	if inStock == outOfStock {
		return products
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		// Unknown availability matches neither explicit branch.
		if p.InStock == nil {
			continue
		}
		if *p.InStock == inStock {
			out = append(out, p)
		}
	}
	return out
}

func applyPriceRange(products []Product, from, to string) []Product {
	lo, hasLo := priceBound(from)
	hi, hasHi := priceBound(to)
	if !hasLo && !hasHi {
		return products
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		price, ok := p.EffectivePrice()
		if !ok {
			// A bounded range cannot match a product with no known price.
			continue
		}
		if hasLo && price.LessThan(lo) {
			continue
		}
		if hasHi && price.GreaterThan(hi) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func applyColors(products []Product, colors []string) []Product {
	if len(colors) == 0 {
		return products
	}
	selected := make(map[string]struct{}, len(colors))
	for _, c := range colors {
		selected[strings.ToLower(c)] = struct{}{}
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		for _, c := range p.Colors {
			if _, ok := selected[strings.ToLower(c)]; ok {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func applyRating(products []Product, minimum float64) []Product {
	if minimum <= 0 {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Rating != nil && *p.Rating >= minimum {
			out = append(out, p)
		}
	}
	return out
}

// applySort orders the filtered set by the selected key. The sort is
// stable: products with equal keys keep their filtered-order positions.
// Name comparison is locale-aware.
func applySort(products []Product, by SortBy) []Product {
	if by.Key == SortNone {
		return products
	}

	out := slices.Clone(products)

	var less func(a, b Product) bool
	switch by.Key {
	case SortName:
		coll := collate.New(language.English)
		less = func(a, b Product) bool {
			return coll.CompareString(a.Name, b.Name) < 0
		}
	case SortPrice:
		less = func(a, b Product) bool {
			return a.SortPrice().LessThan(b.SortPrice())
		}
	case SortRating:
		less = func(a, b Product) bool {
			return a.SortRating() < b.SortRating()
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if by.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// paginate clamps page into [1, max(1, totalPages)] and slices out the
// requested window. An empty result has zero pages and an empty window.
func paginate(products []Product, page, pageSize int) View {
	if pageSize < 1 {
		pageSize = 1
	}
	total := len(products)
	totalPages := (total + pageSize - 1) / pageSize

	maxPage := totalPages
	if maxPage < 1 {
		maxPage = 1
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return View{
		PageItems:  products[start:end],
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
	}
}
