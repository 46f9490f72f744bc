// Package snapshot keeps the last successfully observed event list per
// feed key. The store is the diff baseline: absent until the first
// successful fetch, then replaced wholesale after every clean diff cycle,
// never merged.
package snapshot

import (
	"sync"

	"planningwatch/internal/domain"
)

type Store struct {
	mu    sync.Mutex
	byKey map[string][]domain.Event
}

func NewStore() *Store {
	return &Store{byKey: make(map[string][]domain.Event)}
}

// Get returns the stored events for the feed key and whether a baseline
// exists at all. An existing empty list is a valid baseline.
func (s *Store) Get(feedKey string) ([]domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, ok := s.byKey[feedKey]

	return events, ok
}

// Set replaces the baseline for the feed key.
func (s *Store) Set(feedKey string, events []domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey[feedKey] = events
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.byKey)
}
