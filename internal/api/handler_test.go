package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/wishlist"
)

type staticSource []catalog.Product

func (s staticSource) Load(context.Context) ([]catalog.Product, error) { return s, nil }

func testProducts() []catalog.Product {
	inStock, outOfStock := true, false
	highRating, lowRating := 4.0, 2.0
	return []catalog.Product{
		{
			ID:      1,
			Name:    "Red Tee",
			Price:   decimal.NullDecimal{Decimal: decimal.NewFromInt(20), Valid: true},
			InStock: &inStock,
			Colors:  []string{"Red"},
			Sizes:   []string{"S", "M"},
			Rating:  &highRating,
		},
		{
			ID:              2,
			Name:            "Blue Tee",
			Price:           decimal.NullDecimal{Decimal: decimal.NewFromInt(15), Valid: true},
			DiscountedPrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(10), Valid: true},
			InStock:         &outOfStock,
			Colors:          []string{"Blue"},
			Rating:          &lowRating,
		},
	}
}

// newTestServer builds a handler over a loaded catalog and in-memory
// wishlist sessions, routed the same way the server wires it.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := catalog.NewStore(staticSource(testProducts()))
	require.NoError(t, store.Refresh(context.Background()))

	sessions := wishlist.NewSessions(func(string) wishlist.Store {
		return wishlist.NewMemoryStore()
	})

	mux := http.NewServeMux()
	NewHandler(store, sessions).Routes(mux)
	return mux
}

func doJSON(t *testing.T, h http.Handler, req *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestCarousel(t *testing.T) {
	h := newTestServer(t)

	var body []map[string]any
	rec := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/carousel", nil), &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Len(t, body, 2)
	assert.Equal(t, "Red Tee", body[0]["name"])
	assert.Equal(t, "Blue Tee", body[1]["name"])
}

func TestCarousel_NotLoaded(t *testing.T) {
	store := catalog.NewStore(staticSource(nil))
	sessions := wishlist.NewSessions(func(string) wishlist.Store { return wishlist.NewMemoryStore() })
	mux := http.NewServeMux()
	NewHandler(store, sessions).Routes(mux)

	var body map[string]any
	rec := doJSON(t, mux, httptest.NewRequest(http.MethodGet, "/api/carousel", nil), &body)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, float64(http.StatusBadGateway), body["code"])
	assert.Equal(t, "failed to load products data", body["message"])
}

func TestHeroAnimated(t *testing.T) {
	h := newTestServer(t)

	var body map[string]any
	rec := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/heroAnimated", nil), &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Crafting Excellence in Every Stitch", body["title"])
	assert.Equal(t, "/apparel.mp4", body["videoUrl"])
}

type productsResponse struct {
	Products   []map[string]any `json:"products"`
	TotalCount int              `json:"totalCount"`
	TotalPages int              `json:"totalPages"`
	Page       int              `json:"page"`
}

func TestListProducts_NoFilters(t *testing.T) {
	h := newTestServer(t)

	var body productsResponse
	rec := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/products", nil), &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, body.TotalCount)
	assert.Equal(t, 1, body.TotalPages)
	assert.Equal(t, 1, body.Page)
	require.Len(t, body.Products, 2)
}

func TestListProducts_Filtered(t *testing.T) {
	h := newTestServer(t)

	url := "/api/products?search=tee&availability=" +
		strings.ReplaceAll(catalog.AvailabilityInStock, " ", "%20") +
		"&sort=price,asc"
	var body productsResponse
	rec := doJSON(t, h, httptest.NewRequest(http.MethodGet, url, nil), &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, body.TotalCount)
	assert.Equal(t, "Red Tee", body.Products[0]["name"])
}

func TestListProducts_PriceRangeMatchesDiscountedPrice(t *testing.T) {
	h := newTestServer(t)

	var body productsResponse
	doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/products?price_from=10&price_to=10", nil), &body)

	require.Equal(t, 1, body.TotalCount)
	assert.Equal(t, "Blue Tee", body.Products[0]["name"])
}

func TestListProducts_MalformedParamsDegrade(t *testing.T) {
	h := newTestServer(t)

	// Bad sort, bad rating, and bad page all degrade to their defaults
	// rather than failing the request.
	var body productsResponse
	rec := doJSON(t, h, httptest.NewRequest(http.MethodGet,
		"/api/products?sort=size,sideways&rating=squid&page=zero", nil), &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, body.TotalCount)
	assert.Equal(t, 1, body.Page)
}

func TestListProducts_PageBeyondEndClamped(t *testing.T) {
	h := newTestServer(t)

	var body productsResponse
	doJSON(t, h, httptest.NewRequest(http.MethodGet, "/api/products?page=99", nil), &body)

	assert.Equal(t, 1, body.Page)
	assert.Len(t, body.Products, 2)
}

type wishlistResponse struct {
	Item  map[string]any   `json:"item"`
	Items []map[string]any `json:"items"`
	Count int              `json:"count"`
}

func TestWishlist_AddGetRemoveClear(t *testing.T) {
	h := newTestServer(t)
	const session = "test-session"

	add := func(body string) (*httptest.ResponseRecorder, wishlistResponse) {
		req := httptest.NewRequest(http.MethodPost, "/api/wishlist/items", strings.NewReader(body))
		req.Header.Set(sessionHeader, session)
		var resp wishlistResponse
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		}
		return rec, resp
	}

	rec, resp := add(`{"productId": 1, "color": "Red", "size": "M"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session, rec.Header().Get(sessionHeader))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Red Tee", resp.Item["name"])
	assert.Equal(t, "M", resp.Item["size"])

	// Re-adding with another variant echoes the stored entry.
	rec, resp = add(`{"productId": 1, "size": "S"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "M", resp.Item["size"])

	rec, resp = add(`{"productId": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Count)
	// Variant defaults to the product's first color.
	assert.Equal(t, "Blue", resp.Item["color"])

	req := httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set(sessionHeader, session)
	var got wishlistResponse
	doJSON(t, h, req, &got)
	require.Equal(t, 2, got.Count)
	assert.Equal(t, "Red Tee", got.Items[0]["name"])
	assert.Equal(t, "Blue Tee", got.Items[1]["name"])

	req = httptest.NewRequest(http.MethodDelete, "/api/wishlist/items/1", nil)
	req.Header.Set(sessionHeader, session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/wishlist", nil)
	req.Header.Set(sessionHeader, session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set(sessionHeader, session)
	doJSON(t, h, req, &got)
	assert.Equal(t, 0, got.Count)
}

func TestWishlist_AddUnknownProduct(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/wishlist/items", strings.NewReader(`{"productId": 42}`))
	var body map[string]any
	rec := doJSON(t, h, req, &body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", body["message"])
}

func TestWishlist_AddMalformedBody(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/wishlist/items", strings.NewReader(`{"productId":`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWishlist_RemoveMalformedID(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/wishlist/items/banana", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHeader_MintedWhenMissingOrInvalid(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		id   string
	}{
		{"missing", ""},
		{"too long", strings.Repeat("x", 129)},
		{"control characters", "abc\x01def"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
			if tt.id != "" {
				req.Header.Set(sessionHeader, tt.id)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			minted := rec.Header().Get(sessionHeader)
			assert.NotEmpty(t, minted)
			assert.NotEqual(t, tt.id, minted)
		})
	}
}

func TestSessions_AreIsolated(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/wishlist/items", strings.NewReader(`{"productId": 1}`))
	req.Header.Set(sessionHeader, "buyer-a")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set(sessionHeader, "buyer-b")
	var got wishlistResponse
	doJSON(t, h, req, &got)

	assert.Equal(t, 0, got.Count)
}
