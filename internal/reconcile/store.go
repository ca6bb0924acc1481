// Package reconcile holds the event collection of one open calendar.
//
// Local actions and feed notifications are applied through the same three
// operations. Each of them is idempotent by event id, so an optimistic local
// write and its later echo from the feed converge to a single copy.
package reconcile

import (
	"sync"

	"github.com/lomoval/sharedcal/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	events []storage.Event
}

func New(events ...storage.Event) *Store {
	s := &Store{events: make([]storage.Event, 0, len(events))}
	for _, e := range events {
		s.ApplyInsert(e)
	}
	return s
}

// ApplyInsert appends e. It returns false and changes nothing when an event
// with the same id is already held.
func (s *Store) ApplyInsert(e storage.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(e.ID) >= 0 {
		return false
	}
	s.events = append(s.events, e)
	return true
}

// ApplyUpdate replaces the fields present in p. Unknown ids are ignored.
func (s *Store) ApplyUpdate(id string, p storage.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return false
	}
	s.events[i] = p.Apply(s.events[i])
	return true
}

// ApplyDelete removes the event with the given id if it is held.
func (s *Store) ApplyDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return false
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return true
}

// Snapshot returns a copy of the collection in insertion order.
func (s *Store) Snapshot() []storage.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]storage.Event, len(s.events))
	copy(snapshot, s.events)
	return snapshot
}

func (s *Store) Get(id string) (storage.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.find(id); i >= 0 {
		return s.events[i], true
	}
	return storage.Event{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) find(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}
