package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/feed"
)

// Carousel returns the full product catalog verbatim, in feed order.
// When the catalog has never loaded successfully the endpoint degrades
// to 502 so the storefront can show its empty-state error.
func (h *Handler) Carousel(w http.ResponseWriter, r *http.Request) {
	if !h.store.Loaded() {
		writeError(w, http.StatusBadGateway, "failed to load products data")
		return
	}

	var e jx.Encoder
	feed.EncodeProducts(&e, h.store.Products())
	writeJSON(w, http.StatusOK, &e)
}

// ListProducts serves a filtered, sorted, paginated catalog view. Query
// parameters mirror the storefront's deep-link form; anything absent or
// malformed degrades to "no constraint", never to an error.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if !h.store.Loaded() {
		writeError(w, http.StatusBadGateway, "failed to load products data")
		return
	}

	q := r.URL.Query()
	filters := filtersFromQuery(q)
	page := intParam(q, "page", 1)
	pageSize := intParam(q, "per_page", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	view := h.store.View(filters, page, pageSize)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("products")
	feed.EncodeProducts(&e, view.PageItems)
	e.FieldStart("totalCount")
	e.Int(view.TotalCount)
	e.FieldStart("totalPages")
	e.Int(view.TotalPages)
	e.FieldStart("page")
	e.Int(view.Page)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// filtersFromQuery materializes a Filters value from deep-link query
// parameters. An unrecognized sort selection is ignored.
func filtersFromQuery(q url.Values) catalog.Filters {
	f := catalog.Filters{
		Search:       q.Get("search"),
		Availability: q["availability"],
		PriceFrom:    q.Get("price_from"),
		PriceTo:      q.Get("price_to"),
		Colors:       q["color"],
	}
	if v, err := strconv.ParseFloat(q.Get("rating"), 64); err == nil {
		f.Rating = v
	}
	if sb, ok := catalog.ParseSortBy(q.Get("sort")); ok {
		f.SortBy = sb
	}
	return f
}

func intParam(q url.Values, name string, fallback int) int {
	v, err := strconv.Atoi(q.Get(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
