// Package rabbitfeed publishes notifications to a RabbitMQ topic exchange
// using the calendar id as routing key.
package rabbitfeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lomoval/sharedcal/internal/feed"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("not connected")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Exchange string
}

type Broker struct {
	connString string
	exchange   string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func New(config Config) *Broker {
	return &Broker{
		connString: fmt.Sprintf(
			"amqp://%s:%s@%s:%d/",
			config.User,
			config.Password,
			config.Host,
			config.Port,
		),
		exchange: config.Exchange,
	}
}

func (b *Broker) Connect(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	b.conn, err = amqp.Dial(b.connString)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbit: %w", err)
	}

	b.channel, err = b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	return b.channel.ExchangeDeclare(
		b.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// amqp channels are not safe for concurrent publishing.
func (b *Broker) Publish(_ context.Context, calendarID string, n feed.Notification) error {
	body, err := feed.Encode(calendarID, n)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel == nil {
		return ErrNotConnected
	}
	return b.channel.Publish(
		b.exchange, // exchange
		calendarID, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.New().String(),
			Timestamp:   time.Now().UTC(),
			Body:        body,
		})
}

// Subscribe binds a server-named exclusive queue to the calendar's routing key.
// The queue is deleted together with the subscription's channel.
func (b *Broker) Subscribe(_ context.Context, calendarID string) (feed.Subscription, error) {
	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return nil, ErrNotConnected
	}
	ch, err := b.conn.Channel()
	b.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, calendarID, b.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	consumer := "session-" + uuid.New().String()
	msgs, err := ch.Consume(
		queue.Name, // queue
		consumer,   // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	release := func() error {
		if err := ch.Cancel(consumer, false); err != nil {
			log.Warnf("failed to cancel consumer %s: %v", consumer, err)
		}
		return ch.Close()
	}
	return feed.NewStream(release, func(ctx context.Context, deliver feed.Deliver) {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					log.Errorf("rabbit delivery for calendar %s stopped", calendarID)
					return
				}
				if !feed.Dispatch(calendarID, m.Body, deliver) {
					return
				}
			}
		}
	}), nil
}
