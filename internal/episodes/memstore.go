package episodes

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// defaultMemCapacity bounds the in-memory journal. At one episode per spoken
// sentence this covers hours of conversation.
const defaultMemCapacity = 1024

// MemStore is an in-memory episode journal holding the most recent episodes
// in a fixed-capacity ring. It is the default when no PostgreSQL DSN is
// configured. Safe for concurrent use.
type MemStore struct {
	mu   sync.Mutex
	ring []Episode
	next int
	full bool
}

// NewMemStore creates an in-memory journal keeping up to capacity episodes.
// Zero or negative capacity selects the built-in default.
func NewMemStore(capacity int) *MemStore {
	if capacity <= 0 {
		capacity = defaultMemCapacity
	}
	return &MemStore{ring: make([]Episode, capacity)}
}

// Record implements [Store]. The oldest episode is overwritten once the ring
// is full.
func (s *MemStore) Record(_ context.Context, e Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = e
	s.next++
	if s.next == len(s.ring) {
		s.next = 0
		s.full = true
	}
	return nil
}

// Recent implements [Store].
func (s *MemStore) Recent(_ context.Context, limit int) ([]Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = len(s.ring)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Episode, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out, nil
}

// Close implements [Store]. It is a no-op for the in-memory journal.
func (s *MemStore) Close() error { return nil }
