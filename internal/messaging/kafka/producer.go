// Package kafka adapts segmentio/kafka-go to the messaging transport contracts.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-ordersync/internal/messaging"
)

// ProducerConfig configures the writer side.
type ProducerConfig struct {
	Brokers []string
	Topic   string
	// QueueSize bounds the number of messages waiting for a flush.
	QueueSize int
	// MaxAttempts is the writer's internal retry count per flush.
	MaxAttempts int
}

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages locally and writes them synchronously on Flush.
type Producer struct {
	writer    messageWriter
	queueSize int

	mu      sync.Mutex
	pending []kafka.Message
}

var _ messaging.Producer = (*Producer)(nil)

// NewProducer builds a producer that waits for acknowledgment from all
// in-sync replicas and keys partitions by message key.
func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxAttempts,
		BatchTimeout:           5 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, cfg.QueueSize)
}

func newProducer(w messageWriter, queueSize int) *Producer {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Producer{writer: w, queueSize: queueSize}
}

// Produce enqueues a message for the next Flush.
func (p *Producer) Produce(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) >= p.queueSize {
		return fmt.Errorf("%w: %d messages pending", messaging.ErrBufferFull, len(p.pending))
	}
	p.pending = append(p.pending, kafka.Message{Key: key, Value: value})
	return nil
}

// Flush writes every pending message and always empties the queue: the
// writer is synchronous, so once WriteMessages returns nothing is left in
// flight. When ctx expires first the batch is dropped and counted as
// outstanding, and a later Flush does not resend it. Any other failure
// drops the batch and is reported as ErrBrokerUnreachable.
func (p *Producer) Flush(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return 0, nil
	}

	batch := p.pending
	p.pending = nil

	err := p.writer.WriteMessages(ctx, batch...)
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return len(batch), nil
	}
	return len(batch), fmt.Errorf("%w: write %d messages: %w", messaging.ErrBrokerUnreachable, len(batch), err)
}

// Close flushes nothing; callers flush before closing.
func (p *Producer) Close() error {
	return p.writer.Close()
}
