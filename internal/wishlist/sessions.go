package wishlist

import (
	"context"
	"sync"
	"time"
)

// StoreFactory builds the Store for a session seen for the first time.
type StoreFactory func(sessionID string) Store

// Sessions hands out exactly one Store per session id, so every caller
// working on behalf of the same session observes the same wishlist
// state. Stores are created lazily on first use.
type Sessions struct {
	factory StoreFactory

	mu       sync.Mutex
	stores   map[string]Store
	lastSeen map[string]time.Time
}

// NewSessions creates a session registry using factory for new sessions.
func NewSessions(factory StoreFactory) *Sessions {
	return &Sessions{
		factory:  factory,
		stores:   make(map[string]Store),
		lastSeen: make(map[string]time.Time),
	}
}

// Get returns the shared Store for the given session, creating it if
// this is the first time the session is seen.
func (s *Sessions) Get(sessionID string) Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, ok := s.stores[sessionID]
	if !ok {
		store = s.factory(sessionID)
		s.stores[sessionID] = store
	}
	s.lastSeen[sessionID] = time.Now()
	return store
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// evictIdle drops sessions not touched for maxIdle. For redis-backed
// stores this only forgets the handle; the keys expire via TTL. A
// maxIdle of zero or less means sessions never expire.
func (s *Sessions) evictIdle(now time.Time, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, seen := range s.lastSeen {
		if now.Sub(seen) >= maxIdle {
			delete(s.stores, id)
			delete(s.lastSeen, id)
		}
	}
}

// StartCleanup launches a background goroutine that evicts sessions
// idle for longer than maxIdle. It stops when ctx is cancelled.
func (s *Sessions) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evictIdle(now, maxIdle)
			}
		}
	}()
}
