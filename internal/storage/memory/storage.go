package memorystorage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/storage"
)

type Storage struct {
	mu        sync.RWMutex
	calendars map[string]storage.Calendar
	data      map[string]storage.Event
	order     []string
}

func New() *Storage {
	return &Storage{
		calendars: make(map[string]storage.Calendar),
		data:      make(map[string]storage.Event),
	}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) CreateCalendar(_ context.Context, c *storage.Calendar) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Name == "" {
		c.Name = storage.DefaultCalendarName
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[c.ID]; ok {
		return fmt.Errorf("duplicate calendar ID %q", c.ID)
	}
	s.calendars[c.ID] = *c
	return nil
}

func (s *Storage) GetCalendar(_ context.Context, id string) (storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendars[id]
	if !ok {
		return storage.Calendar{}, fmt.Errorf("failed to get calendar %q: %w", id, storage.ErrNotFoundCalendar)
	}
	return c, nil
}

func (s *Storage) RenameCalendar(_ context.Context, id string, name string) (storage.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[id]
	if !ok {
		return storage.Calendar{}, fmt.Errorf("failed to rename calendar %q: %w", id, storage.ErrNotFoundCalendar)
	}
	c.Name = name
	s.calendars[id] = c
	return c, nil
}

func (s *Storage) RemoveCalendar(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[id]; !ok {
		return fmt.Errorf("failed to remove calendar %q: %w", id, storage.ErrNotFoundCalendar)
	}
	delete(s.calendars, id)
	s.removeWhere(func(e storage.Event) bool { return e.CalendarID == id })
	return nil
}

func (s *Storage) AddEvent(_ context.Context, e *storage.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[e.CalendarID]; !ok {
		return fmt.Errorf("failed to add event to calendar %q: %w", e.CalendarID, storage.ErrNotFoundCalendar)
	}
	if _, ok := s.data[e.ID]; ok {
		return fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.data[e.ID] = *e
	s.order = append(s.order, e.ID)
	return nil
}

func (s *Storage) UpdateEvent(_ context.Context, id string, p storage.Patch) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	e = p.Apply(e)
	if err := e.Validate(); err != nil {
		return storage.Event{}, err
	}
	s.data[id] = e
	return e, nil
}

func (s *Storage) RemoveEvent(_ context.Context, id string) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("failed to remove event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	s.removeWhere(func(candidate storage.Event) bool { return candidate.ID == id })
	return e, nil
}

func (s *Storage) ListEvents(_ context.Context, calendarID string) ([]storage.Event, error) {
	events := make([]storage.Event, 0)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if e := s.data[id]; e.CalendarID == calendarID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *Storage) RemoveEndedBefore(_ context.Context, day date.Day) ([]storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeWhere(func(e storage.Event) bool { return e.EndDate.Before(day) }), nil
}

// removeWhere must be called with the write lock held.
func (s *Storage) removeWhere(match func(storage.Event) bool) []storage.Event {
	removed := make([]storage.Event, 0)
	kept := s.order[:0]
	for _, id := range s.order {
		e := s.data[id]
		if match(e) {
			removed = append(removed, e)
			delete(s.data, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}
