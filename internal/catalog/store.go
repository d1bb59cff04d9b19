package catalog

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// Source loads the full product catalog from wherever it lives: a local
// JSON file, an upstream data endpoint, or a database.
type Source interface {
	Load(ctx context.Context) ([]Product, error)
}

// ErrStaleRefresh is returned by Refresh when its response arrived after
// a newer refresh had already been applied. The stale result is
// discarded; the store still holds the newer catalog.
var ErrStaleRefresh = errors.New("stale catalog refresh discarded")

// ErrNotLoaded is returned by callers that need a catalog before the
// first successful load has happened.
var ErrNotLoaded = errors.New("catalog not loaded")

// Store holds the loaded product list and serves derived views from it.
//
// Products are immutable once loaded; the only mutation is a wholesale
// replacement by Refresh. Concurrent refreshes are ordered by a
// generation number so that a slow, older load can never overwrite the
// result of a newer one.
type Store struct {
	source Source

	mu         sync.RWMutex
	products   []Product
	loaded     bool
	lastErr    error
	nextGen    uint64
	appliedGen uint64
}

// NewStore creates a Store that loads products from source. The store
// starts empty; call Refresh to perform the initial load.
func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Refresh replaces the catalog with a fresh load from the source.
//
// A failed load leaves the store empty with the error recorded, so the
// serving layer degrades to an empty-state response rather than stale
// data of unknown age. A load that completes after a newer Refresh has
// already been applied is discarded and reported as ErrStaleRefresh.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	products, err := s.source.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen <= s.appliedGen {
		return ErrStaleRefresh
	}
	s.appliedGen = gen

	if err != nil {
		s.products = nil
		s.loaded = false
		s.lastErr = err
		return errors.Wrap(err, "load catalog")
	}

	s.products = products
	s.loaded = true
	s.lastErr = nil
	return nil
}

// Products returns the current catalog in load order. The returned
// slice is shared and must be treated as read-only.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

// Loaded reports whether at least one load succeeded and no later load
// has failed since.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LastError returns the error from the most recent failed load, or nil.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// View computes a filtered, sorted, paginated view over the current
// catalog. It reads a consistent snapshot of the product list; the
// computation itself runs outside the lock.
func (s *Store) View(f Filters, page, pageSize int) View {
	products := s.Products()
	return ComputeView(products, f, page, pageSize)
}

// Lookup returns the product with the given id, if the catalog holds one.
func (s *Store) Lookup(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
