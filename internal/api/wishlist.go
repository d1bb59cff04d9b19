package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/stitchline/catalog-api/internal/wishlist"
)

// sessionHeader carries the wishlist session id. A request without a
// usable id gets a fresh one; the response always echoes the id in use
// so the client can keep sending it.
const sessionHeader = "X-Session-ID"

// session resolves the caller's wishlist store. Invalid ids (empty, too
// long, non-printable) are replaced with a freshly minted uuid rather
// than rejected.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) wishlist.Store {
	id := r.Header.Get(sessionHeader)
	if !isValidSessionID(id) {
		id = uuid.New().String()
	}
	w.Header().Set(sessionHeader, id)
	return h.sessions.Get(id)
}

func isValidSessionID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}

// GetWishlist returns the session's saved items in insertion order.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	store := h.session(w, r)

	items, err := store.Items(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load wishlist")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	encodeItems(&e, items)
	e.FieldStart("count")
	e.Int(len(items))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// addItemRequest is the POST /api/wishlist/items body: the product to
// save plus an optional chosen variant.
type addItemRequest struct {
	ProductID int
	Color     string
	Size      string
}

// AddWishlistItem saves a catalog product to the session's wishlist.
// Adding a product that is already saved is a no-op: the first-captured
// variant wins.
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	store := h.session(w, r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeAddItemRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, ok := h.store.Lookup(req.ProductID)
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	item := wishlist.ItemFromProduct(p)
	if req.Color != "" {
		item.Color = req.Color
	}
	if req.Size != "" {
		item.Size = req.Size
	}

	if err := store.Add(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save wishlist item")
		return
	}

	items, err := store.Items(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load wishlist")
		return
	}

	// Echo the stored entry, which differs from item when the product
	// was already saved with another variant.
	stored := item
	for _, it := range items {
		if it.ID == item.ID {
			stored = it
			break
		}
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("item")
	encodeItem(&e, stored)
	e.FieldStart("count")
	e.Int(len(items))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// RemoveWishlistItem deletes one saved item. Removing an id that is not
// saved succeeds quietly.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	store := h.session(w, r)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := store.Remove(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove wishlist item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearWishlist empties the session's wishlist unconditionally.
func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	store := h.session(w, r)

	if err := store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeAddItemRequest(body []byte) (addItemRequest, error) {
	var req addItemRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Int()
		case "color":
			req.Color, err = d.Str()
		case "size":
			req.Size, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func encodeItems(e *jx.Encoder, items []wishlist.Item) {
	e.ArrStart()
	for _, item := range items {
		encodeItem(e, item)
	}
	e.ArrEnd()
}

func encodeItem(e *jx.Encoder, item wishlist.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(item.ID)
	e.FieldStart("name")
	e.Str(item.Name)
	if item.Price.Valid {
		e.FieldStart("price")
		e.Num(jx.Num(item.Price.Decimal.String()))
	}
	if item.DiscountedPrice.Valid {
		e.FieldStart("discountedPrice")
		e.Num(jx.Num(item.DiscountedPrice.Decimal.String()))
	}
	if item.Image != "" {
		e.FieldStart("image")
		e.Str(item.Image)
	}
	if item.Color != "" {
		e.FieldStart("color")
		e.Str(item.Color)
	}
	if item.Size != "" {
		e.FieldStart("size")
		e.Str(item.Size)
	}
	e.ObjEnd()
}
