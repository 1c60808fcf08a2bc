package orders

import (
	"context"
	"crypto/subtle"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/logistics"
	"github.com/angelmondragon/localdrop-backend/internal/orders/fsm"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/metrics"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/localdrop-backend/pkg/pagination"
)

// VendorAction is a storefront-side delivery step.
type VendorAction string

const (
	VendorAccept  VendorAction = "accept"
	VendorPrepare VendorAction = "prepare"
	VendorRefuse  VendorAction = "refuse"
)

// CourierAction is a courier-side delivery step.
type CourierAction string

const (
	CourierClaim   CourierAction = "claim"
	CourierPickup  CourierAction = "pickup"
	CourierDeliver CourierAction = "deliver"
)

// PaymentOutcome is a provider-reported change of a payment authorization.
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentCanceled  PaymentOutcome = "canceled"
	PaymentFailed    PaymentOutcome = "failed"
)

type ServiceParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     Repository
	Profiles profileReader
	Payments PaymentGateway
	Outbox   outboxPublisher
	Metrics  *metrics.PipelineMetrics
	Now      func() time.Time
}

// Service owns every state change of an order after it has been materialized.
type Service struct {
	logg     *logger.Logger
	tx       txRunner
	repo     Repository
	profiles profileReader
	payments PaymentGateway
	outbox   outboxPublisher
	metrics  *metrics.PipelineMetrics
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		tx:       params.DB,
		repo:     params.Repo,
		profiles: params.Profiles,
		payments: params.Payments,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Get returns one order projected for the caller. Orders outside the caller's
// scope are reported as not found.
func (s *Service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := ViewFor(*order, actor.Role)
	return &view, nil
}

// List pages the caller's orders newest first.
func (s *Service) List(ctx context.Context, actor Actor, filter ListFilter, params pagination.Params) (*OrderList, error) {
	scoped, err := scopeFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.List(ctx, scoped, params)
	if err != nil {
		return nil, err
	}
	return &OrderList{Orders: viewsFor(rows, actor.Role), NextCursor: next}, nil
}

func scopeFilter(actor Actor, filter ListFilter) (ListFilter, error) {
	switch actor.Role {
	case enums.RoleBuyer:
		filter.ClientID = &actor.UserID
	case enums.RoleVendor:
		if actor.StorefrontID == nil {
			return filter, pkgerrors.New(pkgerrors.CodeForbidden, "storefront context missing")
		}
		filter.StorefrontID = actor.StorefrontID
	case enums.RoleCourier:
		filter.CourierID = &actor.UserID
	case enums.RoleAdmin:
	default:
		return filter, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot read orders")
	}
	return filter, nil
}

func canRead(actor Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.RoleBuyer:
		return order.ClientID == actor.UserID
	case enums.RoleVendor:
		return actor.StorefrontID != nil && order.StorefrontID == *actor.StorefrontID
	case enums.RoleCourier:
		return order.CourierID != nil && *order.CourierID == actor.UserID
	case enums.RoleAdmin:
		return true
	default:
		return false
	}
}

// CourierJobs lists unassigned orders ready for pickup, nearest storefront first.
func (s *Service) CourierJobs(ctx context.Context, actor Actor, limit int) ([]CourierJob, error) {
	if actor.Role != enums.RoleCourier {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "courier role required")
	}
	profile, err := s.profiles.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if profile.Location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier location is required")
	}

	rows, err := s.repo.ListClaimable(ctx, 0)
	if err != nil {
		return nil, err
	}
	jobs := make([]CourierJob, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, CourierJob{
			Order:      ViewFor(row, enums.RoleCourier),
			DistanceKm: logistics.DistanceKm(*profile.Location, row.StorefrontLocation),
		})
	}
	slices.SortStableFunc(jobs, func(a, b CourierJob) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return 0
		}
	})
	limit = pagination.NormalizeLimit(limit)
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// VendorAct runs accept, prepare or refuse for the storefront in the caller's token.
func (s *Service) VendorAct(ctx context.Context, actor Actor, orderID uuid.UUID, action VendorAction) (*OrderView, error) {
	if actor.Role != enums.RoleVendor || actor.StorefrontID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor storefront context required")
	}

	var t transition
	var allowedFrom []enums.DeliveryState
	switch action {
	case VendorAccept:
		t = transition{delivery: enums.DeliveryAccepted, source: SourceVendor}
		allowedFrom = []enums.DeliveryState{enums.DeliveryPending}
	case VendorPrepare:
		t = transition{delivery: enums.DeliveryPreparing, source: SourceVendor}
		allowedFrom = []enums.DeliveryState{enums.DeliveryAccepted}
	case VendorRefuse:
		t = transition{capture: enums.CaptureCanceled, delivery: enums.DeliveryCancelled, source: SourceVendor, reason: ReasonVendorRefused}
		allowedFrom = []enums.DeliveryState{enums.DeliveryPending, enums.DeliveryAccepted}
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown vendor action %q", action)
	}

	check := func(order *models.Order) error {
		if order.StorefrontID != *actor.StorefrontID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to storefront")
		}
		return requireDelivery(order, t.delivery, allowedFrom)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := check(order); err != nil {
		return nil, err
	}
	if action == VendorRefuse && order.DeliveryState != enums.DeliveryCancelled {
		if err := s.payments.CancelAuthorization(ctx, order.PaymentAuthorizationID); err != nil {
			return nil, err
		}
	}

	return s.act(ctx, orderID, t, actorRef(actor), check)
}

// CourierAct runs claim, pickup or deliver. Deliver needs the buyer's verification code.
func (s *Service) CourierAct(ctx context.Context, actor Actor, orderID uuid.UUID, action CourierAction, verificationCode string) (*OrderView, error) {
	if actor.Role != enums.RoleCourier {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "courier role required")
	}
	switch action {
	case CourierClaim:
		return s.claim(ctx, actor, orderID)
	case CourierPickup, CourierDeliver:
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown courier action %q", action)
	}

	t := transition{delivery: enums.DeliveryOnTheWay, source: SourceCourier}
	allowedFrom := []enums.DeliveryState{enums.DeliveryPreparing}
	if action == CourierDeliver {
		t = transition{delivery: enums.DeliveryDelivered, source: SourceCourier}
		allowedFrom = []enums.DeliveryState{enums.DeliveryOnTheWay}
	}

	check := func(order *models.Order) error {
		if order.CourierID == nil || *order.CourierID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to courier")
		}
		return requireDelivery(order, t.delivery, allowedFrom)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := check(order); err != nil {
		return nil, err
	}
	if action == CourierDeliver && order.DeliveryState != enums.DeliveryDelivered {
		if !verificationMatches(order.VerificationCode, verificationCode) {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "verification code mismatch")
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
		}
		if err := s.payments.CaptureAuthorization(ctx, order.PaymentAuthorizationID); err != nil {
			return nil, err
		}
	}

	return s.act(ctx, orderID, t, actorRef(actor), check)
}

func (s *Service) claim(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderView, error) {
	profile, err := s.profiles.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if profile.Role != enums.RoleCourier {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "courier profile required")
	}

	var out *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CourierID != nil {
			if *order.CourierID == actor.UserID {
				out = order
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already claimed")
		}
		if order.CaptureState != enums.CaptureAuthorized ||
			(order.DeliveryState != enums.DeliveryAccepted && order.DeliveryState != enums.DeliveryPreparing) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not claimable")
		}

		courierID := actor.UserID
		order.CourierID = &courierID
		order.CourierPayoutID = profile.PayoutAccountID
		if err := repo.SaveState(ctx, order); err != nil {
			return err
		}
		out = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCourierAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID.String(),
			Actor:         actorRef(actor),
			Data: payloads.CourierAssignedEvent{
				OrderID:      order.ID.String(),
				StorefrontID: order.StorefrontID.String(),
				CourierID:    courierID.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	view := ViewFor(*out, actor.Role)
	return &view, nil
}

// act re-reads the order under lock, re-checks, and commits t.
func (s *Service) act(ctx context.Context, orderID uuid.UUID, t transition, actor *outbox.ActorRef, check func(*models.Order) error) (*OrderView, error) {
	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := check(order); err != nil {
			return err
		}
		result, err := s.commit(ctx, tx, order, t, actor)
		if err != nil {
			return err
		}
		if result.rejected() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed")
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := ViewFor(*out, enums.Role(actor.Role))
	return &view, nil
}

func requireDelivery(order *models.Order, target enums.DeliveryState, allowedFrom []enums.DeliveryState) error {
	if order.DeliveryState == target {
		return nil
	}
	if !slices.Contains(allowedFrom, order.DeliveryState) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.DeliveryState).
			WithDetails(map[string]any{"delivery_state": order.DeliveryState, "requested": target})
	}
	return nil
}

func verificationMatches(expected, given string) bool {
	given = strings.ToUpper(strings.TrimSpace(given))
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID.String(), Role: string(actor.Role)}
}

// ReconcilePayment moves an order after a provider event. Disallowed moves are
// logged as anomalies and leave the order untouched. An unknown authorization
// returns a not found error.
func (s *Service) ReconcilePayment(ctx context.Context, authorizationID string, outcome PaymentOutcome) (*models.Order, bool, error) {
	var t transition
	switch outcome {
	case PaymentSucceeded:
		t = transition{capture: enums.CaptureCaptured, delivery: enums.DeliveryDelivered, source: SourceWebhook}
	case PaymentCanceled:
		t = transition{capture: enums.CaptureCanceled, delivery: enums.DeliveryCancelled, source: SourceWebhook, reason: ReasonPaymentCancel}
	case PaymentFailed:
		t = transition{capture: enums.CaptureFailed, delivery: enums.DeliveryCancelled, source: SourceWebhook, reason: ReasonPaymentFailed}
	default:
		return nil, false, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment outcome %q", outcome)
	}

	var (
		out     *models.Order
		applied bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByAuthorizationIDForUpdate(ctx, authorizationID)
		if err != nil {
			return err
		}
		result, err := s.commit(ctx, tx, order, t, outbox.SystemActor(SourceWebhook))
		if err != nil {
			return err
		}
		if result.rejected() && s.logg != nil {
			logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
				"capture_state":    order.CaptureState,
				"delivery_state":   order.DeliveryState,
				"capture_outcome":  result.capture,
				"delivery_outcome": result.delivery,
				"payment_outcome":  outcome,
			})
			s.logg.Warn(logCtx, "payment event anomaly: transition not in table")
		}
		out = order
		applied = result.changed()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, applied, nil
}

// ExpirePending cancels an order still pending. The hold is voided while the
// row lock is held, so a vendor accept racing the reaper either lands first
// (and the order is left alone) or waits and finds the order cancelled. A
// failed provider cancel rolls back and leaves the order pending for the next
// sweep. It returns false when the order is no longer pending.
func (s *Service) ExpirePending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.DeliveryState != enums.DeliveryPending {
		return false, nil
	}

	var expired bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.DeliveryState != enums.DeliveryPending {
			return nil
		}
		if err := s.payments.CancelAuthorization(ctx, locked.PaymentAuthorizationID); err != nil {
			return err
		}
		result, err := s.commit(ctx, tx, locked, transition{
			capture:  enums.CaptureFailed,
			delivery: enums.DeliveryCancelled,
			source:   SourceReaper,
			reason:   ReasonNoCourier,
		}, outbox.SystemActor(SourceReaper))
		if err != nil {
			return err
		}
		expired = result.delivery == fsm.Applied
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		s.metrics.StaleOrderCanceled()
	}
	return expired, nil
}

// RecordTransfers stores payout transfer ids and emits payment_captured once.
func (s *Service) RecordTransfers(ctx context.Context, order *models.Order, vendorTransferID, courierTransferID *string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SaveTransfers(ctx, order.ID, vendorTransferID, courierTransferID); err != nil {
			return err
		}
		event := payloads.PaymentCapturedEvent{
			OrderID:                order.ID.String(),
			PaymentAuthorizationID: order.PaymentAuthorizationID,
			AmountCents:            order.TotalPriceCents,
		}
		if vendorTransferID != nil {
			event.VendorTransferID = *vendorTransferID
		}
		if courierTransferID != nil {
			event.CourierTransferID = *courierTransferID
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID.String(),
			Actor:         outbox.SystemActor(SourceWebhook),
			Data:          event,
		})
	})
}
