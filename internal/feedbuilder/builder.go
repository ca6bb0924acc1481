package feedbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/lomoval/sharedcal/internal/feed"
	kafkafeed "github.com/lomoval/sharedcal/internal/feed/kafka"
	memoryfeed "github.com/lomoval/sharedcal/internal/feed/memory"
	rabbitfeed "github.com/lomoval/sharedcal/internal/feed/rabbit"
	redisfeed "github.com/lomoval/sharedcal/internal/feed/redis"
)

type Config struct {
	FeedType string
	Rabbit   rabbitfeed.Config
	Redis    redisfeed.Config
	Kafka    kafkafeed.Config
}

func New(config Config) (feed.Broker, error) {
	var b feed.Broker
	switch config.FeedType {
	case "memory":
		return memoryfeed.New(), nil
	case "rabbit":
		b = rabbitfeed.New(config.Rabbit)
	case "redis":
		b = redisfeed.New(config.Redis)
	case "kafka":
		b = kafkafeed.New(config.Kafka)
	default:
		return nil, fmt.Errorf("unknown feed type %s", config.FeedType)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := b.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s feed: %w", config.FeedType, err)
	}
	return b, nil
}
