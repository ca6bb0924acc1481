// Package memoryfeed delivers notifications between sessions of one process.
package memoryfeed

import (
	"context"
	"sync"

	"github.com/lomoval/sharedcal/internal/feed"
)

const inboxSize = 64

type subscription struct {
	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Broker keeps subscriptions in memory. Payloads still travel encoded so the
// wire format is the same as with the network brokers.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

func New() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

func (b *Broker) Connect(_ context.Context) error {
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subs {
		for s := range subs {
			s.stop()
		}
	}
	b.subs = make(map[string]map[*subscription]struct{})
	return nil
}

func (b *Broker) Publish(ctx context.Context, calendarID string, n feed.Notification) error {
	data, err := feed.Encode(calendarID, n)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[calendarID] {
		select {
		case s.inbox <- data:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Broker) Subscribe(_ context.Context, calendarID string) (feed.Subscription, error) {
	s := &subscription{
		inbox: make(chan []byte, inboxSize),
		done:  make(chan struct{}),
	}
	b.mu.Lock()
	if b.subs[calendarID] == nil {
		b.subs[calendarID] = make(map[*subscription]struct{})
	}
	b.subs[calendarID][s] = struct{}{}
	b.mu.Unlock()

	release := func() error {
		s.stop()
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[calendarID], s)
		if len(b.subs[calendarID]) == 0 {
			delete(b.subs, calendarID)
		}
		return nil
	}
	return feed.NewStream(release, func(ctx context.Context, deliver feed.Deliver) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case data := <-s.inbox:
				if !feed.Dispatch(calendarID, data, deliver) {
					return
				}
			}
		}
	}), nil
}

// Subscribers returns the number of open subscriptions of a calendar.
func (b *Broker) Subscribers(calendarID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[calendarID])
}
