package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned by Decode for any input that is not a
// valid event envelope. Consumers log and skip such messages.
var ErrMalformedPayload = errors.New("malformed event payload")

// Encode serializes evt as a JSON envelope.
func Encode(evt Event) ([]byte, error) {
	switch e := evt.(type) {
	case OrderCreated:
		return json.Marshal(e)
	case OrderStatusUpdated:
		return json.Marshal(e)
	default:
		return nil, fmt.Errorf("encode event: unsupported type %T", evt)
	}
}

// Decode parses a JSON envelope, dispatching on event_type.
func Decode(raw []byte) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Also covers a top level that is not an object.
		return nil, malformed("invalid JSON object: %v", err)
	}

	rawType, ok := fields["event_type"]
	if !ok {
		return nil, malformed("missing event_type")
	}
	var et EventType
	if err := json.Unmarshal(rawType, &et); err != nil {
		return nil, malformed("event_type is not a string")
	}

	switch et {
	case EventOrderCreated:
		var e OrderCreated
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, malformed("%s: %v", et, err)
		}
		if err := validateHeader(e.Header); err != nil {
			return nil, err
		}
		if err := e.Order.Validate(); err != nil {
			return nil, malformed("%s: %v", et, err)
		}
		if e.Order.OrderID != e.OrderID {
			return nil, malformed("%s: order.orderId %q does not match order_id %q", et, e.Order.OrderID, e.OrderID)
		}
		return e, nil
	case EventOrderStatusUpdated:
		var e OrderStatusUpdated
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, malformed("%s: %v", et, err)
		}
		if err := validateHeader(e.Header); err != nil {
			return nil, err
		}
		if !e.Status.Valid() {
			return nil, malformed("%s: unknown status %q", et, e.Status)
		}
		return e, nil
	default:
		return nil, malformed("unknown event_type %q", et)
	}
}

func validateHeader(h Header) error {
	switch {
	case h.EventID == "":
		return malformed("%s: missing event_id", h.EventType)
	case h.OrderID == "":
		return malformed("%s: missing order_id", h.EventType)
	case h.Timestamp.IsZero():
		return malformed("%s: missing timestamp", h.EventType)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}
