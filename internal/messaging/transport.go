package messaging

import (
	"context"
	"errors"
	"time"
)

// Transport errors. Adapters wrap their native errors with these so the
// publisher and consumer loop can classify failures.
var (
	// ErrBufferFull means the local produce queue has no room.
	ErrBufferFull = errors.New("local produce queue full")
	// ErrBrokerUnreachable means the brokers could not be reached or refused the request.
	ErrBrokerUnreachable = errors.New("brokers unreachable")
	// ErrTopicNotReady means the topic has not been provisioned yet.
	ErrTopicNotReady = errors.New("topic not yet provisioned")
)

// Producer enqueues messages locally and flushes them to the log.
type Producer interface {
	// Produce enqueues one message. It returns ErrBufferFull when the
	// local queue is at capacity.
	Produce(key, value []byte) error

	// Flush waits until all outstanding messages are acknowledged by the
	// required replicas or ctx expires. It returns the number of messages
	// still outstanding.
	Flush(ctx context.Context) (int, error)
}

// Message is one record read from the log.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Subscriber opens subscriptions to a topic on behalf of a consumer group.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is one open connection to the log. Offsets of returned
// messages are committed automatically.
type Subscription interface {
	// Poll waits up to timeout for the next message. It returns a nil
	// message and nil error when nothing arrived in time.
	Poll(ctx context.Context, timeout time.Duration) (*Message, error)

	Close() error
}
