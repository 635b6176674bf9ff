package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CustomerEventsTopic is the default topic customer lifecycle events are published on.
const CustomerEventsTopic = "customer_events"

const (
	CustomerRegistered = "customer.registered"
	CustomerUpdated    = "customer.updated"
	CustomerDeleted    = "customer.deleted"
)

type CustomerEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	CustomerID int       `json:"customerId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewCustomerEvent(eventType string, customerID int) CustomerEvent {
	return CustomerEvent{
		ID:         uuid.New(),
		Type:       eventType,
		CustomerID: customerID,
		OccurredAt: time.Now().UTC(),
	}
}

// DecodeCustomerEvent accepts what either queue hands to subscribers: the
// event value itself (in-memory) or its JSON encoding (AMQP).
func DecodeCustomerEvent(payload any) (CustomerEvent, error) {
	switch p := payload.(type) {
	case CustomerEvent:
		return p, nil
	case *CustomerEvent:
		if p == nil {
			return CustomerEvent{}, fmt.Errorf("nil customer event")
		}
		return *p, nil
	case []byte:
		var ev CustomerEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			return CustomerEvent{}, fmt.Errorf("decode customer event: %w", err)
		}
		return ev, nil
	case json.RawMessage:
		return DecodeCustomerEvent([]byte(p))
	default:
		return CustomerEvent{}, fmt.Errorf("unexpected payload type %T", payload)
	}
}
