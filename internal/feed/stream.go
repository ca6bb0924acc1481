package feed

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Deliver hands a notification to the subscriber. It returns false once the
// subscription is closing and the caller should stop.
type Deliver func(Notification) bool

// Stream is the Subscription shared by the brokers. A broker supplies the
// receive loop and the release of its transport resources.
type Stream struct {
	ch      chan Notification
	cancel  context.CancelFunc
	done    chan struct{}
	release func() error
	once    sync.Once
	err     error
}

// NewStream runs loop in its own goroutine until it returns or the stream is
// closed. release is called once on Close, after the loop context is cancelled.
func NewStream(release func() error, loop func(ctx context.Context, deliver Deliver)) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		ch:      make(chan Notification, 16),
		cancel:  cancel,
		done:    make(chan struct{}),
		release: release,
	}
	deliver := func(n Notification) bool {
		select {
		case s.ch <- n:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(s.done)
		defer close(s.ch)
		loop(ctx, deliver)
	}()
	return s
}

func (s *Stream) Notifications() <-chan Notification {
	return s.ch
}

func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		if s.release != nil {
			s.err = s.release()
		}
		<-s.done
	})
	return s.err
}

// Dispatch decodes one wire payload and delivers it when it belongs to
// calendarID. Undecodable payloads are logged and skipped.
func Dispatch(calendarID string, data []byte, deliver Deliver) bool {
	target, n, err := Decode(data)
	if err != nil {
		log.Warnf("dropping notification for calendar %s: %v", calendarID, err)
		return true
	}
	if target != calendarID {
		return true
	}
	log.Debugf("notification %s %s for calendar %s", n.Kind(), n.EventID(), calendarID)
	return deliver(n)
}
