package publisher

import (
	"errors"
	"fmt"
)

// Kind classifies why a publish failed.
type Kind int

const (
	// KindFailed is any failure not covered by a more specific kind.
	KindFailed Kind = iota
	// KindQueueFull means the local produce queue stayed full.
	KindQueueFull
	// KindBrokersUnavailable means the brokers stayed unreachable.
	KindBrokersUnavailable
	// KindDeliveryTimeout means acknowledgment did not arrive within the
	// flush timeout. Delivery state is ambiguous so it is never retried.
	KindDeliveryTimeout
)

func (k Kind) String() string {
	switch k {
	case KindQueueFull:
		return "queue_full"
	case KindBrokersUnavailable:
		return "brokers_unavailable"
	case KindDeliveryTimeout:
		return "delivery_timeout"
	default:
		return "failed"
	}
}

// Sentinels for errors.Is. Every *Error matches ErrPublishFailed.
var (
	ErrPublishFailed      = errors.New("publish failed")
	ErrQueueFull          = errors.New("producer queue full")
	ErrBrokersUnavailable = errors.New("kafka brokers unavailable")
	ErrDeliveryTimeout    = errors.New("delivery timeout")
)

// Error is returned by Publish when the event was not durably recorded.
type Error struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("publish %s after %d attempt(s)", e.Kind, e.Attempts)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrPublishFailed for every kind and the kind's own sentinel.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPublishFailed:
		return true
	case ErrQueueFull:
		return e.Kind == KindQueueFull
	case ErrBrokersUnavailable:
		return e.Kind == KindBrokersUnavailable
	case ErrDeliveryTimeout:
		return e.Kind == KindDeliveryTimeout
	}
	return false
}
