// Package kafkafeed publishes notifications to a Kafka topic keyed by
// calendar id.
package kafkafeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const retryDelay = time.Second

var ErrNoBrokers = errors.New("no kafka brokers configured")

type Config struct {
	Brokers []string
	Topic   string
}

// Writer abstracts kafka.Writer for testing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader abstracts a partition kafka.Reader for testing.
type Reader interface {
	SetOffset(offset int64) error
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Locator finds the partition a key is written to and the offset the next
// message of that partition will take.
type Locator interface {
	Locate(ctx context.Context, key string) (partition int, offset int64, err error)
}

type Broker struct {
	config    Config
	writer    Writer
	locator   Locator
	newReader func(partition int) Reader
}

func New(config Config) *Broker {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewWithClients(config, writer, &partitionLocator{config: config}, func(partition int) Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:   config.Brokers,
			Topic:     config.Topic,
			Partition: partition,
			MaxWait:   500 * time.Millisecond,
		})
	})
}

func NewWithClients(config Config, writer Writer, locator Locator, newReader func(partition int) Reader) *Broker {
	return &Broker{config: config, writer: writer, locator: locator, newReader: newReader}
}

func (b *Broker) Connect(ctx context.Context) error {
	if len(b.config.Brokers) == 0 {
		return ErrNoBrokers
	}
	conn, err := kafka.DialContext(ctx, "tcp", b.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	return conn.Close()
}

func (b *Broker) Close() error {
	return b.writer.Close()
}

func (b *Broker) Publish(ctx context.Context, calendarID string, n feed.Notification) error {
	data, err := feed.Encode(calendarID, n)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(calendarID),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

// Subscribe reads the calendar's partition from the offset it has when
// Subscribe is called, so nothing published after the call is missed.
func (b *Broker) Subscribe(ctx context.Context, calendarID string) (feed.Subscription, error) {
	partition, offset, err := b.locator.Locate(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to locate calendar %s in kafka: %w", calendarID, err)
	}
	reader := b.newReader(partition)
	if err := reader.SetOffset(offset); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("failed to set kafka offset %d: %w", offset, err)
	}
	log.Debugf("calendar %s reads kafka partition %d from offset %d", calendarID, partition, offset)

	return feed.NewStream(reader.Close, func(ctx context.Context, deliver feed.Deliver) {
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("failed to read kafka message for calendar %s: %v", calendarID, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
				}
				continue
			}
			if string(m.Key) != calendarID {
				continue
			}
			if !feed.Dispatch(calendarID, m.Value, deliver) {
				return
			}
		}
	}), nil
}

// partitionLocator asks the cluster for the topic's partitions and picks
// one the same way the writer's Hash balancer does.
type partitionLocator struct {
	config Config
}

func (l *partitionLocator) Locate(ctx context.Context, key string) (int, int64, error) {
	if len(l.config.Brokers) == 0 {
		return 0, 0, ErrNoBrokers
	}
	conn, err := kafka.DialContext(ctx, "tcp", l.config.Brokers[0])
	if err != nil {
		return 0, 0, err
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(l.config.Topic)
	if err != nil {
		return 0, 0, err
	}
	if len(partitions) == 0 {
		return 0, 0, fmt.Errorf("topic %s has no partitions", l.config.Topic)
	}
	ids := make([]int, 0, len(partitions))
	for _, p := range partitions {
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	partition := (&kafka.Hash{}).Balance(kafka.Message{Key: []byte(key)}, ids...)

	leader, err := kafka.DialLeader(ctx, "tcp", l.config.Brokers[0], l.config.Topic, partition)
	if err != nil {
		return 0, 0, err
	}
	defer leader.Close()
	offset, err := leader.ReadLastOffset()
	if err != nil {
		return 0, 0, err
	}
	return partition, offset, nil
}
