package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/angelmondragon/localdrop-backend/internal/orders"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/metrics"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
)

const (
	outcomeApplied  = "applied"
	outcomeNoop     = "noop"
	outcomeUnknown  = "unknown_authorization"
	outcomeIgnored  = "ignored"
	outcomeFailed   = "error"
	outcomePayout   = "payout_error"
	transferVendor  = "transfer_vendor_"
	transferCourier = "transfer_courier_"
)

type orderReconciler interface {
	ReconcilePayment(ctx context.Context, authorizationID string, outcome orders.PaymentOutcome) (*models.Order, bool, error)
	RecordTransfers(ctx context.Context, order *models.Order, vendorTransferID, courierTransferID *string) error
}

type transferClient interface {
	CreateTransfer(ctx context.Context, req pkgstripe.TransferRequest) (string, error)
}

type ServiceParams struct {
	Orders    orderReconciler
	Transfers transferClient
	Logger    *logger.Logger
	Metrics   *metrics.PipelineMetrics
}

// Service applies PaymentIntent events to orders and pays out captured funds.
type Service struct {
	orders    orderReconciler
	transfers transferClient
	logg      *logger.Logger
	metrics   *metrics.PipelineMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order reconciler required")
	}
	if params.Transfers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transfer client required")
	}
	return &Service{
		orders:    params.Orders,
		transfers: params.Transfers,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

func outcomeFor(eventType stripe.EventType) (orders.PaymentOutcome, bool) {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return orders.PaymentSucceeded, true
	case stripe.EventTypePaymentIntentCanceled:
		return orders.PaymentCanceled, true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return orders.PaymentFailed, true
	default:
		return "", false
	}
}

// HandleEvent returns an error only when the provider should redeliver the event.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	eventType := string(event.Type)

	outcome, ok := outcomeFor(event.Type)
	if !ok {
		s.metrics.WebhookEvent(eventType, outcomeIgnored)
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		s.metrics.WebhookEvent(eventType, outcomeFailed)
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		s.metrics.WebhookEvent(eventType, outcomeFailed)
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(s.logg.WithAuthorizationID(ctx, intent.ID), map[string]any{
			"stripe_event_id":   event.ID,
			"stripe_event_type": eventType,
		})
	}

	order, applied, err := s.orders.ReconcilePayment(ctx, intent.ID, outcome)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.metrics.WebhookEvent(eventType, outcomeUnknown)
			if s.logg != nil {
				s.logg.Warn(ctx, "payment event for authorization without order")
			}
			return nil
		}
		s.metrics.WebhookEvent(eventType, outcomeFailed)
		return err
	}

	if outcome == orders.PaymentSucceeded && order.CaptureState == enums.CaptureCaptured {
		if err := s.payout(ctx, order); err != nil {
			s.metrics.WebhookEvent(eventType, outcomePayout)
			return err
		}
	}

	if applied {
		s.metrics.WebhookEvent(eventType, outcomeApplied)
	} else {
		s.metrics.WebhookEvent(eventType, outcomeNoop)
	}
	return nil
}

// PayoutAmounts splits a captured order: the vendor keeps the products minus
// the platform fee and its delivery participation; the courier gets the whole
// delivery charge.
func PayoutAmounts(order *models.Order) (vendorCents, courierCents int64) {
	vendorCents = order.ProductTotalCents - order.PlatformFeeCents - order.VendorParticipationCents
	courierCents = order.TotalDeliveryChargeCents
	return vendorCents, courierCents
}

// payout creates the transfers still missing for order. Transfer idempotency
// keys make redelivered events safe.
func (s *Service) payout(ctx context.Context, order *models.Order) error {
	vendorCents, courierCents := PayoutAmounts(order)
	var (
		vendorTransfer, courierTransfer *string
		errs                            error
	)

	if order.VendorTransferID == nil {
		id, err := s.transfer(ctx, order, "vendor", order.VendorPayoutID, vendorCents, transferVendor)
		errs = multierr.Append(errs, err)
		vendorTransfer = id
	}
	if order.CourierTransferID == nil {
		id, err := s.transfer(ctx, order, "courier", order.CourierPayoutID, courierCents, transferCourier)
		errs = multierr.Append(errs, err)
		courierTransfer = id
	}

	if vendorTransfer != nil || courierTransfer != nil {
		errs = multierr.Append(errs, s.orders.RecordTransfers(ctx, order, vendorTransfer, courierTransfer))
	}
	return errs
}

func (s *Service) transfer(ctx context.Context, order *models.Order, party string, destination *string, amountCents int64, keyPrefix string) (*string, error) {
	if destination == nil || *destination == "" {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), fmt.Sprintf("%s payout account missing, transfer skipped", party))
		}
		return nil, nil
	}
	if amountCents <= 0 {
		return nil, nil
	}
	id, err := s.transfers.CreateTransfer(ctx, pkgstripe.TransferRequest{
		AmountCents:    amountCents,
		Currency:       order.Currency,
		Destination:    *destination,
		TransferGroup:  order.TransferGroup,
		IdempotencyKey: keyPrefix + order.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s transfer: %w", party, err)
	}
	return &id, nil
}
