// Package notifying wraps a storage and publishes a feed notification after
// every successful event write.
package notifying

import (
	"context"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/lomoval/sharedcal/internal/storage"
	log "github.com/sirupsen/logrus"
)

// Storage publishes after the write is committed. A failed publish is logged
// and counted; the write itself has succeeded and is reported as such.
type Storage struct {
	storage.Storage
	publisher feed.Publisher
	metrics   *metrics.Metrics
}

func New(s storage.Storage, publisher feed.Publisher, m *metrics.Metrics) *Storage {
	return &Storage{Storage: s, publisher: publisher, metrics: m}
}

func (s *Storage) AddEvent(ctx context.Context, e *storage.Event) error {
	if err := s.Storage.AddEvent(ctx, e); err != nil {
		return err
	}
	s.publish(ctx, e.CalendarID, feed.Insert{Event: *e})
	return nil
}

func (s *Storage) UpdateEvent(ctx context.Context, id string, p storage.Patch) (storage.Event, error) {
	e, err := s.Storage.UpdateEvent(ctx, id, p)
	if err != nil {
		return e, err
	}
	s.publish(ctx, e.CalendarID, feed.Update{ID: e.ID, Patch: storage.PatchOf(e)})
	return e, nil
}

func (s *Storage) RemoveEvent(ctx context.Context, id string) (storage.Event, error) {
	e, err := s.Storage.RemoveEvent(ctx, id)
	if err != nil {
		return e, err
	}
	s.publish(ctx, e.CalendarID, feed.Delete{ID: e.ID})
	return e, nil
}

func (s *Storage) RemoveEndedBefore(ctx context.Context, day date.Day) ([]storage.Event, error) {
	removed, err := s.Storage.RemoveEndedBefore(ctx, day)
	for _, e := range removed {
		s.publish(ctx, e.CalendarID, feed.Delete{ID: e.ID})
	}
	return removed, err
}

func (s *Storage) publish(ctx context.Context, calendarID string, n feed.Notification) {
	if err := s.publisher.Publish(ctx, calendarID, n); err != nil {
		log.Errorf("failed to publish %s of event %s: %v", n.Kind(), n.EventID(), err)
		s.metrics.PublishFailed(string(n.Kind()))
	}
}
