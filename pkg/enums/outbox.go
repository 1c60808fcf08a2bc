package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType maps to the aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder                OutboxAggregateType = "order"
	AggregatePaymentAuthorization OutboxAggregateType = "payment_authorization"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePaymentAuthorization,
}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	a := OutboxAggregateType(value)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid aggregate type %q", value)
	}
	return a, nil
}

// OutboxEventType maps to the event_type_enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStateChanged     OutboxEventType = "order_state_changed"
	EventCourierAssigned       OutboxEventType = "courier_assigned"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventOrderCanceled         OutboxEventType = "order_canceled"
	EventPaymentCaptured       OutboxEventType = "payment_captured"
	EventAuthorizationOrphaned OutboxEventType = "authorization_orphaned"
	EventAuthorizationCanceled OutboxEventType = "authorization_canceled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStateChanged,
	EventCourierAssigned,
	EventOrderDelivered,
	EventOrderCanceled,
	EventPaymentCaptured,
	EventAuthorizationOrphaned,
	EventAuthorizationCanceled,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return e, nil
}
