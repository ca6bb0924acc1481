// Package feed carries calendar-scoped change notifications between the
// process that writes an event and every session showing that calendar.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lomoval/sharedcal/internal/storage"
)

var ErrUnknownKind = errors.New("unknown notification kind")

type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Notification is one of Insert, Update or Delete.
type Notification interface {
	Kind() Kind
	EventID() string
	notification()
}

type Insert struct {
	Event storage.Event
}

type Update struct {
	ID    string
	Patch storage.Patch
}

type Delete struct {
	ID string
}

func (Insert) Kind() Kind { return KindInsert }
func (Update) Kind() Kind { return KindUpdate }
func (Delete) Kind() Kind { return KindDelete }

func (n Insert) EventID() string { return n.Event.ID }
func (n Update) EventID() string { return n.ID }
func (n Delete) EventID() string { return n.ID }

func (Insert) notification() {}
func (Update) notification() {}
func (Delete) notification() {}

type Publisher interface {
	Publish(ctx context.Context, calendarID string, n Notification) error
}

type Subscriber interface {
	// Subscribe starts delivering the notifications of one calendar. The
	// subscription lives until Close, independent of ctx.
	Subscribe(ctx context.Context, calendarID string) (Subscription, error)
}

type Subscription interface {
	// Notifications is closed once the subscription ends.
	Notifications() <-chan Notification
	Close() error
}

type Broker interface {
	Publisher
	Subscriber
	Connect(ctx context.Context) error
	Close() error
}

// Envelope is the wire form of a notification.
type Envelope struct {
	Kind       Kind           `json:"kind"`
	CalendarID string         `json:"calendarId"`
	Event      *storage.Event `json:"event,omitempty"`
	ID         string         `json:"id,omitempty"`
	Patch      *storage.Patch `json:"patch,omitempty"`
}

// Wrap puts a notification of a calendar into its wire envelope.
func Wrap(calendarID string, n Notification) (Envelope, error) {
	env := Envelope{Kind: n.Kind(), CalendarID: calendarID}
	switch v := n.(type) {
	case Insert:
		env.Event = &v.Event
	case Update:
		env.ID = v.ID
		env.Patch = &v.Patch
	case Delete:
		env.ID = v.ID
	default:
		return Envelope{}, fmt.Errorf("%T: %w", n, ErrUnknownKind)
	}
	return env, nil
}

// Notification returns the notification carried by env.
func (env Envelope) Notification() (Notification, error) {
	switch env.Kind {
	case KindInsert:
		if env.Event == nil {
			return nil, fmt.Errorf("insert without event: %w", ErrUnknownKind)
		}
		return Insert{Event: *env.Event}, nil
	case KindUpdate:
		if env.ID == "" || env.Patch == nil {
			return nil, fmt.Errorf("update without id or patch: %w", ErrUnknownKind)
		}
		return Update{ID: env.ID, Patch: *env.Patch}, nil
	case KindDelete:
		if env.ID == "" {
			return nil, fmt.Errorf("delete without id: %w", ErrUnknownKind)
		}
		return Delete{ID: env.ID}, nil
	default:
		return nil, fmt.Errorf("%q: %w", env.Kind, ErrUnknownKind)
	}
}

func Encode(calendarID string, n Notification) ([]byte, error) {
	env, err := Wrap(calendarID, n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func Decode(data []byte) (string, Notification, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("failed to parse notification: %w", err)
	}
	n, err := env.Notification()
	if err != nil {
		return "", nil, err
	}
	return env.CalendarID, n, nil
}
