package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-ordersync/internal/messaging"
)

// ConsumerConfig configures the reader side.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	// CommitInterval controls periodic offset auto-commit.
	CommitInterval time.Duration
	// StartFromLatest starts a group with no committed offset at the end
	// of the log instead of the beginning.
	StartFromLatest bool
}

// Subscriber opens one kafka-go Reader per subscription.
type Subscriber struct {
	cfg ConsumerConfig
}

var _ messaging.Subscriber = (*Subscriber)(nil)

// NewSubscriber returns a subscriber for the consumer group in cfg.
func NewSubscriber(cfg ConsumerConfig) *Subscriber {
	if cfg.CommitInterval <= 0 {
		cfg.CommitInterval = time.Second
	}
	return &Subscriber{cfg: cfg}
}

// Subscribe opens a reader on topic.
func (s *Subscriber) Subscribe(_ context.Context, topic string) (messaging.Subscription, error) {
	if len(s.cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: no brokers configured", messaging.ErrBrokerUnreachable)
	}

	startOffset := kafka.FirstOffset
	if s.cfg.StartFromLatest {
		startOffset = kafka.LastOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        s.cfg.Brokers,
		Topic:          topic,
		GroupID:        s.cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		StartOffset:    startOffset,
		CommitInterval: s.cfg.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
	return &subscription{reader: r}, nil
}

// messageReader is the subset of *kafka.Reader a subscription needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type subscription struct {
	reader messageReader
}

// Poll reads the next message. With a GroupID set, ReadMessage marks the
// offset for the next periodic commit.
func (s *subscription) Poll(ctx context.Context, timeout time.Duration) (*messaging.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m, err := s.reader.ReadMessage(pollCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return nil, fmt.Errorf("%w: %w", messaging.ErrTopicNotReady, err)
		}
		return nil, fmt.Errorf("read message: %w", err)
	}

	return &messaging.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
	}, nil
}

func (s *subscription) Close() error {
	return s.reader.Close()
}
