// Package redisfeed publishes notifications over Redis pub/sub, one channel
// per calendar.
package redisfeed

import (
	"context"
	"fmt"

	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Broker struct {
	client *redis.Client
	prefix string
}

func New(config Config) *Broker {
	return &Broker{
		client: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
		prefix: config.Prefix,
	}
}

func (b *Broker) Connect(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

func (b *Broker) Close() error {
	return b.client.Close()
}

func (b *Broker) Channel(calendarID string) string {
	return b.prefix + calendarID
}

func (b *Broker) Publish(ctx context.Context, calendarID string, n feed.Notification) error {
	data, err := feed.Encode(calendarID, n)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.Channel(calendarID), data).Err()
}

// Subscribe waits for the server to confirm the subscription so nothing
// published after it returns is missed.
func (b *Broker) Subscribe(ctx context.Context, calendarID string) (feed.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.Channel(calendarID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.Channel(calendarID), err)
	}

	msgs := pubsub.Channel()
	return feed.NewStream(pubsub.Close, func(ctx context.Context, deliver feed.Deliver) {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					log.Errorf("redis delivery for calendar %s stopped", calendarID)
					return
				}
				if !feed.Dispatch(calendarID, []byte(m.Payload), deliver) {
					return
				}
			}
		}
	}), nil
}
