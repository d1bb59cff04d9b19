package wishlist

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is the default, process-local Store. All mutations are
// serialized by a single mutex so any number of readers observe the
// same state after a mutation.
type MemoryStore struct {
	mu    sync.Mutex
	order []int
	items map[int]Item
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory wishlist.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[int]Item)}
}

// Add inserts item unless an entry with the same id already exists.
func (s *MemoryStore) Add(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok {
		return nil
	}
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return nil
}

// Remove deletes the entry with the given id, if present.
func (s *MemoryStore) Remove(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return nil
	}
	delete(s.items, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}

// Contains reports whether an entry with the given id exists.
func (s *MemoryStore) Contains(_ context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok, nil
}

// Clear empties the wishlist unconditionally.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[int]Item)
	s.order = s.order[:0]
	return nil
}

// Items returns the saved entries in insertion order.
func (s *MemoryStore) Items(_ context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}
