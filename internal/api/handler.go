// Package api implements the HTTP surface of the catalog service:
// the product feed endpoints, the filtered catalog view, the hero
// content endpoint, and the per-session wishlist operations.
package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/wishlist"
)

// defaultPageSize matches the storefront's products-per-page.
const defaultPageSize = 10

// maxPageSize caps per_page so a single request cannot ask for the
// whole catalog page-by-page in one response.
const maxPageSize = 100

// Handler serves the catalog API. It reads from the catalog store and
// reads/mutates per-session wishlists; it owns no state of its own.
type Handler struct {
	store    *catalog.Store
	sessions *wishlist.Sessions
}

// NewHandler constructs a Handler over the given stores.
func NewHandler(store *catalog.Store, sessions *wishlist.Sessions) *Handler {
	return &Handler{store: store, sessions: sessions}
}

// Routes registers every API route on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/carousel", h.Carousel)
	mux.HandleFunc("GET /api/heroAnimated", h.HeroAnimated)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/wishlist", h.GetWishlist)
	mux.HandleFunc("POST /api/wishlist/items", h.AddWishlistItem)
	mux.HandleFunc("DELETE /api/wishlist/items/{id}", h.RemoveWishlistItem)
	mux.HandleFunc("DELETE /api/wishlist", h.ClearWishlist)
}

// writeJSON sends the encoder's buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError sends the service's uniform error body.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}
