// Package session keeps one calendar's event collection in sync with
// persistence and the change feed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/lomoval/sharedcal/internal/reconcile"
	"github.com/lomoval/sharedcal/internal/storage"
	log "github.com/sirupsen/logrus"
)

var (
	ErrCollaboratorFailure = errors.New("collaborator failure")
	ErrClosed              = errors.New("session is closed")
)

type Persistence interface {
	AddEvent(ctx context.Context, e *storage.Event) error
	UpdateEvent(ctx context.Context, id string, p storage.Patch) (storage.Event, error)
	RemoveEvent(ctx context.Context, id string) (storage.Event, error)
	ListEvents(ctx context.Context, calendarID string) ([]storage.Event, error)
}

type Session struct {
	calendarID  string
	persistence Persistence
	store       *reconcile.Store
	sub         feed.Subscription
	metrics     *metrics.Metrics

	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open subscribes to the calendar's feed before loading its events, so no
// change made while loading is lost. Notifications that repeat the loaded
// state are absorbed by the store.
func Open(
	ctx context.Context,
	calendarID string,
	persistence Persistence,
	subscriber feed.Subscriber,
	m *metrics.Metrics,
) (*Session, error) {
	sub, err := subscriber.Subscribe(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to calendar %s: %w: %w", calendarID, ErrCollaboratorFailure, err)
	}
	events, err := persistence.ListEvents(ctx, calendarID)
	if err != nil {
		sub.Close()
		return nil, wrap("list events", err)
	}

	s := &Session{
		calendarID:  calendarID,
		persistence: persistence,
		store:       reconcile.New(events...),
		sub:         sub,
		metrics:     m,
		done:        make(chan struct{}),
	}
	go s.route()
	m.SessionOpened()
	log.Debugf("session for calendar %s opened with %d events", calendarID, len(events))
	return s, nil
}

func (s *Session) route() {
	defer close(s.done)
	for n := range s.sub.Notifications() {
		s.apply(metrics.SourceFeed, n)
	}
	log.Debugf("feed of calendar %s ended", s.calendarID)
}

func (s *Session) CalendarID() string {
	return s.calendarID
}

// Done is closed when the session stops receiving feed notifications.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Snapshot() []storage.Event {
	return s.store.Snapshot()
}

func (s *Session) Event(id string) (storage.Event, bool) {
	return s.store.Get(id)
}

// Apply routes a notification into the store and reports whether it changed it.
func (s *Session) Apply(n feed.Notification) bool {
	return s.apply(metrics.SourceFeed, n)
}

func (s *Session) apply(source string, n feed.Notification) bool {
	var applied bool
	switch v := n.(type) {
	case feed.Insert:
		applied = s.store.ApplyInsert(v.Event)
	case feed.Update:
		applied = s.store.ApplyUpdate(v.ID, v.Patch)
	case feed.Delete:
		applied = s.store.ApplyDelete(v.ID)
	}
	s.metrics.Applied(source, string(n.Kind()), applied)
	return applied
}

// AddEvent persists e in the session's calendar and applies it locally once
// persistence succeeded.
func (s *Session) AddEvent(ctx context.Context, e *storage.Event) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	e.CalendarID = s.calendarID
	if err := s.persistence.AddEvent(ctx, e); err != nil {
		return wrap("add event", err)
	}
	s.apply(metrics.SourceLocal, feed.Insert{Event: *e})
	return nil
}

func (s *Session) UpdateEvent(ctx context.Context, id string, p storage.Patch) (storage.Event, error) {
	if err := s.checkOpen(); err != nil {
		return storage.Event{}, err
	}
	if _, err := s.lookup(ctx, "update event", id); err != nil {
		return storage.Event{}, err
	}
	e, err := s.persistence.UpdateEvent(ctx, id, p)
	if err != nil {
		return storage.Event{}, wrap("update event", err)
	}
	s.apply(metrics.SourceLocal, feed.Update{ID: id, Patch: storage.PatchOf(e)})
	return e, nil
}

func (s *Session) DeleteEvent(ctx context.Context, id string) (storage.Event, error) {
	if err := s.checkOpen(); err != nil {
		return storage.Event{}, err
	}
	if _, err := s.lookup(ctx, "delete event", id); err != nil {
		return storage.Event{}, err
	}
	e, err := s.persistence.RemoveEvent(ctx, id)
	if err != nil {
		return storage.Event{}, wrap("delete event", err)
	}
	s.apply(metrics.SourceLocal, feed.Delete{ID: id})
	return e, nil
}

// Lookup returns an event of the session's calendar. When the store does not
// hold it, persistence decides: an event found there is applied to the store.
func (s *Session) Lookup(ctx context.Context, id string) (storage.Event, error) {
	if err := s.checkOpen(); err != nil {
		return storage.Event{}, err
	}
	return s.lookup(ctx, "lookup event", id)
}

func (s *Session) lookup(ctx context.Context, op, id string) (storage.Event, error) {
	if e, ok := s.store.Get(id); ok {
		return e, nil
	}
	events, err := s.persistence.ListEvents(ctx, s.calendarID)
	if err != nil {
		return storage.Event{}, wrap(op, err)
	}
	for _, e := range events {
		if e.ID == id {
			log.Debugf("event %s of calendar %s was missing from the session", id, s.calendarID)
			s.apply(metrics.SourceLocal, feed.Insert{Event: e})
			return e, nil
		}
	}
	return storage.Event{}, fmt.Errorf("%s %s: %w", op, id, storage.ErrNotFoundEvent)
}

// Close ends the feed subscription and waits for routing to stop.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.closeErr = s.sub.Close()
		<-s.done
		s.metrics.SessionClosed()
		log.Debugf("session for calendar %s closed", s.calendarID)
	})
	return s.closeErr
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func wrap(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFoundEvent),
		errors.Is(err, storage.ErrNotFoundCalendar),
		errors.Is(err, storage.ErrDuplicateEventID),
		errors.Is(err, storage.ErrIncorrectEvent):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorFailure, err)
	}
}
