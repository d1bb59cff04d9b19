// Package wishlist implements the per-session saved-items store: a
// small mapping of product id to the item captured at the moment it
// was saved, with idempotent add and total remove/clear operations.
package wishlist

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stitchline/catalog-api/internal/catalog"
)

// Item is one saved wishlist entry. ID equals the originating product's
// id and is the only join key back to the catalog. Color and Size are
// the single variant chosen when the item was added.
type Item struct {
	ID              int                 `json:"id"`
	Name            string              `json:"name"`
	Price           decimal.NullDecimal `json:"price,omitempty"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice,omitempty"`
	Image           string              `json:"image,omitempty"`
	Color           string              `json:"color,omitempty"`
	Size            string              `json:"size,omitempty"`
}

// ItemFromProduct captures a wishlist entry from a product, defaulting
// the variant to the product's first listed color and size.
func ItemFromProduct(p catalog.Product) Item {
	item := Item{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		DiscountedPrice: p.DiscountedPrice,
		Image:           p.Image,
	}
	if len(p.Colors) > 0 {
		item.Color = p.Colors[0]
	}
	if len(p.Sizes) > 0 {
		item.Size = p.Sizes[0]
	}
	return item
}

// Store is one session's wishlist. Implementations must keep at most
// one item per id and preserve insertion order for Items.
//
// Add is idempotent: adding an id that is already present is a no-op
// and the first-captured color and size win. Remove and Clear are total
// — removing an absent id is not an error.
type Store interface {
	Add(ctx context.Context, item Item) error
	Remove(ctx context.Context, id int) error
	Contains(ctx context.Context, id int) (bool, error)
	Clear(ctx context.Context) error
	Items(ctx context.Context) ([]Item, error)
}
