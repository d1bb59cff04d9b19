package wishlist

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchline/catalog-api/internal/catalog"
)

func testItem(id int, name string) Item {
	return Item{ID: id, Name: name, Color: "Red", Size: "M"}
}

func TestMemoryStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, testItem(1, "Red Tee")))

	// Re-adding the same id with a different variant is a no-op: the
	// first-captured color and size win.
	dup := testItem(1, "Red Tee")
	dup.Color = "Blue"
	dup.Size = "XL"
	require.NoError(t, store.Add(ctx, dup))

	items, err := store.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Red", items[0].Color)
	assert.Equal(t, "M", items[0].Size)
}

func TestMemoryStore_RemoveIsTotal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, testItem(1, "Red Tee")))
	require.NoError(t, store.Remove(ctx, 1))

	ok, err := store.Contains(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an id that is not there is not an error.
	assert.NoError(t, store.Remove(ctx, 1))
	assert.NoError(t, store.Remove(ctx, 42))
}

func TestMemoryStore_ItemsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, name := range []string{"Tee", "Jacket", "Apron"} {
		require.NoError(t, store.Add(ctx, testItem(i+1, name)))
	}
	require.NoError(t, store.Remove(ctx, 2))
	require.NoError(t, store.Add(ctx, testItem(4, "Beanie")))

	items, err := store.Items(ctx)
	require.NoError(t, err)

	var got []int
	for _, it := range items {
		got = append(got, it.ID)
	}
	assert.Equal(t, []int{1, 3, 4}, got)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, testItem(1, "Tee")))
	require.NoError(t, store.Add(ctx, testItem(2, "Jacket")))
	require.NoError(t, store.Clear(ctx))

	items, err := store.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Clearing an already-empty wishlist is fine.
	assert.NoError(t, store.Clear(ctx))
}

func TestItemFromProduct(t *testing.T) {
	p := catalog.Product{
		ID:    9,
		Name:  "Twill Jacket",
		Price: decimal.NullDecimal{Decimal: decimal.NewFromInt(80), Valid: true},
		Image: "/img/twill.jpg",
		Colors: []string{
			"Olive", "Navy",
		},
		Sizes: []string{"M", "L"},
	}

	item := ItemFromProduct(p)
	assert.Equal(t, 9, item.ID)
	assert.Equal(t, "Twill Jacket", item.Name)
	assert.Equal(t, "Olive", item.Color)
	assert.Equal(t, "M", item.Size)
	assert.Equal(t, "/img/twill.jpg", item.Image)

	// No variants listed: the item is captured without a variant.
	bare := ItemFromProduct(catalog.Product{ID: 10, Name: "Gift Card"})
	assert.Empty(t, bare.Color)
	assert.Empty(t, bare.Size)
}

func TestSessions_SameSessionSharesStore(t *testing.T) {
	sessions := NewSessions(func(string) Store { return NewMemoryStore() })

	a := sessions.Get("session-a")
	require.NoError(t, a.Add(context.Background(), testItem(1, "Tee")))

	again := sessions.Get("session-a")
	assert.Same(t, a, again)

	other := sessions.Get("session-b")
	items, err := other.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, 2, sessions.Len())
}

func TestSessions_EvictIdle(t *testing.T) {
	sessions := NewSessions(func(string) Store { return NewMemoryStore() })
	sessions.Get("stale")
	sessions.Get("fresh")

	sessions.mu.Lock()
	sessions.lastSeen["stale"] = time.Now().Add(-2 * time.Hour)
	sessions.mu.Unlock()

	sessions.evictIdle(time.Now(), time.Hour)

	assert.Equal(t, 1, sessions.Len())
	sessions.mu.Lock()
	_, staleKept := sessions.stores["stale"]
	_, freshKept := sessions.stores["fresh"]
	sessions.mu.Unlock()
	assert.False(t, staleKept)
	assert.True(t, freshKept)
}

func TestSessions_ZeroMaxIdleNeverEvicts(t *testing.T) {
	sessions := NewSessions(func(string) Store { return NewMemoryStore() })
	sessions.Get("old")

	sessions.mu.Lock()
	sessions.lastSeen["old"] = time.Now().Add(-48 * time.Hour)
	sessions.mu.Unlock()

	sessions.evictIdle(time.Now(), 0)
	sessions.evictIdle(time.Now(), -time.Hour)

	assert.Equal(t, 1, sessions.Len())
}
