package kafkafeed_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lomoval/sharedcal/internal/feed"
	kafkafeed "github.com/lomoval/sharedcal/internal/feed/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeTopic struct {
	mu         sync.Mutex
	partitions []int
	logs       map[int][]kafka.Message
	readers    []*fakeReader
	gate       chan struct{}
	offsetErr  error
	closed     bool
}

func newFakeTopic(partitions int) *fakeTopic {
	t := &fakeTopic{logs: make(map[int][]kafka.Message)}
	for i := 0; i < partitions; i++ {
		t.partitions = append(t.partitions, i)
	}
	return t
}

func (f *fakeTopic) partitionOf(key []byte) int {
	return (&kafka.Hash{}).Balance(kafka.Message{Key: key}, f.partitions...)
}

func (f *fakeTopic) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		p := f.partitionOf(m.Key)
		m.Partition = p
		m.Offset = int64(len(f.logs[p]))
		f.logs[p] = append(f.logs[p], m)
	}
	return nil
}

func (f *fakeTopic) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTopic) Locate(_ context.Context, key string) (int, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.partitionOf([]byte(key))
	return p, int64(len(f.logs[p])), nil
}

func (f *fakeTopic) newReader(partition int) kafkafeed.Reader {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &fakeReader{topic: f, partition: partition, offset: -1, gate: f.gate}
	f.readers = append(f.readers, r)
	return r
}

func (f *fakeTopic) open() []*fakeReader {
	f.mu.Lock()
	defer f.mu.Unlock()
	open := make([]*fakeReader, 0, len(f.readers))
	for _, r := range f.readers {
		if !r.closed {
			open = append(open, r)
		}
	}
	return open
}

type fakeReader struct {
	topic     *fakeTopic
	partition int
	offset    int64
	gate      chan struct{}
	closed    bool
}

func (r *fakeReader) SetOffset(offset int64) error {
	r.topic.mu.Lock()
	defer r.topic.mu.Unlock()
	if r.topic.offsetErr != nil {
		return r.topic.offsetErr
	}
	r.offset = offset
	return nil
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		}
	}
	for {
		r.topic.mu.Lock()
		log := r.topic.logs[r.partition]
		if r.offset >= 0 && r.offset < int64(len(log)) {
			m := log[r.offset]
			r.offset++
			r.topic.mu.Unlock()
			return m, nil
		}
		r.topic.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) Close() error {
	r.topic.mu.Lock()
	defer r.topic.mu.Unlock()
	r.closed = true
	return nil
}

func next(t *testing.T, sub feed.Subscription) feed.Notification {
	t.Helper()
	select {
	case n := <-sub.Notifications():
		return n
	case <-time.After(time.Second):
		require.FailNow(t, "no notification received")
	}
	return nil
}

func TestBroker(t *testing.T) {
	ctx := context.Background()
	topic := newFakeTopic(3)
	b := kafkafeed.NewWithClients(kafkafeed.Config{Topic: "events"}, topic, topic, topic.newReader)

	sub, err := b.Subscribe(ctx, "c1")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "c2")
	require.NoError(t, err)
	defer other.Close()

	readers := topic.open()
	require.Len(t, readers, 2)
	require.Equal(t, topic.partitionOf([]byte("c1")), readers[0].partition)
	require.Equal(t, topic.partitionOf([]byte("c2")), readers[1].partition)

	require.NoError(t, b.Publish(ctx, "c2", feed.Delete{ID: "e2"}))
	require.NoError(t, b.Publish(ctx, "c1", feed.Delete{ID: "e1"}))

	require.Equal(t, feed.Delete{ID: "e1"}, next(t, sub))
	require.Equal(t, feed.Delete{ID: "e2"}, next(t, other))

	require.NoError(t, sub.Close())
	require.Len(t, topic.open(), 1)

	require.NoError(t, b.Close())
	require.True(t, topic.closed)
}

func TestBrokerStartsAtOffsetOfSubscribe(t *testing.T) {
	ctx := context.Background()
	topic := newFakeTopic(1)
	topic.gate = make(chan struct{})
	b := kafkafeed.NewWithClients(kafkafeed.Config{Topic: "events"}, topic, topic, topic.newReader)

	require.NoError(t, b.Publish(ctx, "c1", feed.Delete{ID: "before"}))

	sub, err := b.Subscribe(ctx, "c1")
	require.NoError(t, err)
	defer sub.Close()

	readers := topic.open()
	require.Len(t, readers, 1)
	topic.mu.Lock()
	require.Equal(t, int64(1), readers[0].offset)
	topic.mu.Unlock()

	// Published while the reader has not read anything yet.
	require.NoError(t, b.Publish(ctx, "c1", feed.Delete{ID: "during"}))
	close(topic.gate)

	require.Equal(t, feed.Delete{ID: "during"}, next(t, sub))
}

func TestBrokerSubscribeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("offset", func(t *testing.T) {
		topic := newFakeTopic(1)
		topic.offsetErr = errors.New("offset out of range")
		b := kafkafeed.NewWithClients(kafkafeed.Config{Topic: "events"}, topic, topic, topic.newReader)

		_, err := b.Subscribe(ctx, "c1")
		require.ErrorIs(t, err, topic.offsetErr)
		require.Empty(t, topic.open())
	})

	t.Run("no brokers", func(t *testing.T) {
		b := kafkafeed.New(kafkafeed.Config{Topic: "events"})
		defer b.Close()

		_, err := b.Subscribe(ctx, "c1")
		require.ErrorIs(t, err, kafkafeed.ErrNoBrokers)
		require.ErrorIs(t, b.Connect(ctx), kafkafeed.ErrNoBrokers)
	})
}

func TestBrokerSkipsForeignKeys(t *testing.T) {
	ctx := context.Background()
	topic := newFakeTopic(1)
	b := kafkafeed.NewWithClients(kafkafeed.Config{Topic: "events"}, topic, topic, topic.newReader)

	sub, err := b.Subscribe(ctx, "c1")
	require.NoError(t, err)
	defer sub.Close()

	data, err := feed.Encode("c1", feed.Delete{ID: "mislabelled"})
	require.NoError(t, err)
	require.NoError(t, topic.WriteMessages(ctx, kafka.Message{Key: []byte("c2"), Value: data}))
	require.NoError(t, b.Publish(ctx, "c1", feed.Delete{ID: "e1"}))

	require.Equal(t, "e1", next(t, sub).EventID())
}
