package specstore

import (
	"sync"
	"time"

	"github.com/statkit/dataset-broker/internal/protocol"
)

// Store owns execution specs for the lifetime of a server session. Entries
// age from their immutable creation timestamp; reads never extend a spec's
// life. Expiry is an explicit sweep, not a read-side eviction.
type Store struct {
	mu    sync.Mutex
	items map[string]protocol.ExecutionSpec
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		items: make(map[string]protocol.ExecutionSpec),
		now:   time.Now,
	}
}

// Put stores or replaces a spec under its execution id.
func (s *Store) Put(spec protocol.ExecutionSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[spec.ExecutionID] = spec
}

// Get returns a copy of the spec for id.
func (s *Store) Get(id string) (protocol.ExecutionSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.items[id]
	return spec, ok
}

// All returns copies of every stored spec.
func (s *Store) All() []protocol.ExecutionSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ExecutionSpec, 0, len(s.items))
	for _, spec := range s.items {
		out = append(out, spec)
	}
	return out
}

// SetStatus updates the lifecycle status of a stored spec. The remote-call
// descriptor is never touched. Returns false when id is absent.
func (s *Store) SetStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.items[id]
	if !ok {
		return false
	}
	spec.Status = status
	s.items[id] = spec
	return true
}

// Len reports the number of stored specs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes every spec strictly older than maxAge and returns how many
// were removed. A spec with a TTL override ages against its own limit
// instead. Younger entries are untouched; this is an age threshold, not an
// LRU.
func (s *Store) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, spec := range s.items {
		limit := maxAge
		if spec.TTL > 0 {
			limit = spec.TTL
		}
		if now.Sub(spec.CreatedAt) > limit {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}
