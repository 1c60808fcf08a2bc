package enums

import (
	"fmt"
	"slices"
)

// DeliveryState tracks the physical delivery of an order. Maps to delivery_state in Postgres.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryAccepted  DeliveryState = "accepted"
	DeliveryPreparing DeliveryState = "preparing"
	DeliveryOnTheWay  DeliveryState = "on_the_way"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryCancelled DeliveryState = "cancelled"
)

var validDeliveryStates = []DeliveryState{
	DeliveryPending,
	DeliveryAccepted,
	DeliveryPreparing,
	DeliveryOnTheWay,
	DeliveryDelivered,
	DeliveryCancelled,
}

func (d DeliveryState) String() string {
	return string(d)
}

func (d DeliveryState) IsValid() bool {
	return slices.Contains(validDeliveryStates, d)
}

func (d DeliveryState) IsTerminal() bool {
	return d == DeliveryDelivered || d == DeliveryCancelled
}

func ParseDeliveryState(value string) (DeliveryState, error) {
	d := DeliveryState(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid delivery state %q", value)
	}
	return d, nil
}
