package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/orders/fsm"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// History sources.
const (
	SourceCheckout = "checkout"
	SourceVendor   = "vendor"
	SourceCourier  = "courier"
	SourceWebhook  = "webhook"
	SourceReaper   = "reaper"
)

// Cancellation reasons recorded on the order.
const (
	ReasonNoCourier     = "no_courier"
	ReasonVendorRefused = "vendor_refused"
	ReasonPaymentCancel = "payment_canceled"
	ReasonPaymentFailed = "payment_failed"
)

// transition requests a move on one or both machines. An empty target leaves
// that machine untouched.
type transition struct {
	capture  enums.CaptureState
	delivery enums.DeliveryState
	source   string
	reason   string
}

type transitionResult struct {
	capture  fsm.Outcome
	delivery fsm.Outcome
}

func (r transitionResult) changed() bool {
	return r.capture == fsm.Applied || r.delivery == fsm.Applied
}

func (r transitionResult) rejected() bool {
	return r.capture == fsm.Rejected || r.delivery == fsm.Rejected
}

// apply mutates order in memory. Rejected and same-state requests leave the
// machine and its history untouched.
func (t transition) apply(order *models.Order, at time.Time) transitionResult {
	result := transitionResult{capture: fsm.Noop, delivery: fsm.Noop}

	if t.capture != "" {
		result.capture = fsm.Capture(order.CaptureState, t.capture)
		if result.capture == fsm.Applied {
			order.CaptureState = t.capture
			order.CaptureHistory = append(order.CaptureHistory, types.StateHistoryEntry{
				State: string(t.capture), At: at, Source: t.source, Reason: t.reason,
			})
		}
	}
	if t.delivery != "" {
		result.delivery = fsm.Delivery(order.DeliveryState, t.delivery)
		if result.delivery == fsm.Applied {
			order.DeliveryState = t.delivery
			order.DeliveryHistory = append(order.DeliveryHistory, types.StateHistoryEntry{
				State: string(t.delivery), At: at, Source: t.source, Reason: t.reason,
			})
			if t.delivery == enums.DeliveryCancelled && t.reason != "" {
				reason := t.reason
				order.CancellationReason = &reason
			}
		}
	}
	return result
}

// commit applies t to an order already loaded inside tx, persists it and queues
// the matching outbox events.
func (s *Service) commit(ctx context.Context, tx *gorm.DB, order *models.Order, t transition, actor *outbox.ActorRef) (transitionResult, error) {
	from := *order
	at := s.now().UTC()
	result := t.apply(order, at)

	s.metrics.Transition(string(fsm.MachineCapture), string(result.capture))
	s.metrics.Transition(string(fsm.MachineDelivery), string(result.delivery))

	if !result.changed() {
		return result, nil
	}
	if err := s.repo.WithTx(tx).SaveState(ctx, order); err != nil {
		return result, err
	}

	var events []outbox.DomainEvent
	if result.capture == fsm.Applied {
		events = append(events, stateChanged(order, fsm.MachineCapture, string(from.CaptureState), string(order.CaptureState), t))
	}
	if result.delivery == fsm.Applied {
		events = append(events, stateChanged(order, fsm.MachineDelivery, string(from.DeliveryState), string(order.DeliveryState), t))
		switch order.DeliveryState {
		case enums.DeliveryCancelled:
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventOrderCanceled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID.String(),
				Data: payloads.OrderCanceledEvent{
					OrderID:      order.ID.String(),
					ClientID:     order.ClientID.String(),
					StorefrontID: order.StorefrontID.String(),
					Reason:       t.reason,
					CanceledAt:   at,
				},
			})
		case enums.DeliveryDelivered:
			delivered := payloads.OrderDeliveredEvent{OrderID: order.ID.String(), DeliveredAt: at}
			if order.CourierID != nil {
				delivered.CourierID = order.CourierID.String()
			}
			events = append(events, outbox.DomainEvent{
				EventType:     enums.EventOrderDelivered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID.String(),
				Data:          delivered,
			})
		}
	}

	for _, event := range events {
		event.Actor = actor
		event.OccurredAt = at
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return result, err
		}
	}
	return result, nil
}

func stateChanged(order *models.Order, machine fsm.Machine, from, to string, t transition) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID.String(),
		Data: payloads.OrderStateChangedEvent{
			OrderID: order.ID.String(),
			Machine: string(machine),
			From:    from,
			To:      to,
			Source:  t.source,
			Reason:  t.reason,
		},
	}
}
