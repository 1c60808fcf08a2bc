// Package fsm holds the transition tables for the two order state machines.
package fsm

import (
	"slices"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
)

// Machine names one of the two state machines carried by an order.
type Machine string

const (
	MachineCapture  Machine = "capture"
	MachineDelivery Machine = "delivery"
)

// Outcome is the decision for a requested transition.
type Outcome string

const (
	// Applied means the transition is in the table and changes state.
	Applied Outcome = "applied"
	// Noop means the machine is already in the requested state.
	Noop Outcome = "noop"
	// Rejected means the transition is not in the table.
	Rejected Outcome = "rejected"
)

var captureTransitions = map[enums.CaptureState][]enums.CaptureState{
	enums.CaptureAuthorized: {enums.CaptureCaptured, enums.CaptureCanceled, enums.CaptureFailed},
}

var deliveryTransitions = map[enums.DeliveryState][]enums.DeliveryState{
	enums.DeliveryPending:   {enums.DeliveryAccepted, enums.DeliveryCancelled, enums.DeliveryDelivered},
	enums.DeliveryAccepted:  {enums.DeliveryPreparing, enums.DeliveryCancelled, enums.DeliveryDelivered},
	enums.DeliveryPreparing: {enums.DeliveryOnTheWay, enums.DeliveryCancelled, enums.DeliveryDelivered},
	enums.DeliveryOnTheWay:  {enums.DeliveryDelivered, enums.DeliveryCancelled},
}

// Capture decides a move on the capture machine. Every non-authorized state is terminal.
func Capture(from, to enums.CaptureState) Outcome {
	return decide(captureTransitions, from, to)
}

// Delivery decides a move on the delivery machine. delivered and cancelled are terminal.
func Delivery(from, to enums.DeliveryState) Outcome {
	return decide(deliveryTransitions, from, to)
}

// CaptureTargets lists the states reachable from from.
func CaptureTargets(from enums.CaptureState) []enums.CaptureState {
	return slices.Clone(captureTransitions[from])
}

// DeliveryTargets lists the states reachable from from.
func DeliveryTargets(from enums.DeliveryState) []enums.DeliveryState {
	return slices.Clone(deliveryTransitions[from])
}

func decide[S comparable](table map[S][]S, from, to S) Outcome {
	if from == to {
		return Noop
	}
	if slices.Contains(table[from], to) {
		return Applied
	}
	return Rejected
}
