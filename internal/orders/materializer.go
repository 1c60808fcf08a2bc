package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/catalog"
	"github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/internal/checkout/metadata"
	"github.com/angelmondragon/localdrop-backend/pkg/db"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/metrics"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox/payloads"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

const (
	orderNumberPrefix   = "LD-"
	orderNumberLength   = 8
	orderNumberAttempts = 3
	// excludes 0, O, 1 and I
	orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	reasonPriceChanged  = "price_changed"
)

type MaterializerParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Repo           Repository
	Payments       PaymentGateway
	Catalog        catalog.Repository
	Authorizations checkout.AuthorizationRepository
	Outbox         outboxPublisher
	Metrics        *metrics.PipelineMetrics
	Now            func() time.Time
}

// Materializer turns a confirmed payment authorization into exactly one order.
type Materializer struct {
	logg           *logger.Logger
	tx             txRunner
	repo           Repository
	payments       PaymentGateway
	partitioner    *checkout.Partitioner
	authorizations checkout.AuthorizationRepository
	outbox         outboxPublisher
	metrics        *metrics.PipelineMetrics
	now            func() time.Time
}

func NewMaterializer(params MaterializerParams) (*Materializer, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Authorizations == nil {
		return nil, fmt.Errorf("authorization repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Materializer{
		logg:           params.Logger,
		tx:             params.DB,
		repo:           params.Repo,
		payments:       params.Payments,
		partitioner:    checkout.NewPartitioner(params.Catalog),
		authorizations: params.Authorizations,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		now:            now,
	}, nil
}

// Confirm materializes the order for authorizationID. Every price is re-derived
// from the catalog; the provider amount must still match. Repeated calls return
// the order created by the first one.
func (m *Materializer) Confirm(ctx context.Context, callerID uuid.UUID, authorizationID string) (*models.Order, error) {
	authorizationID = strings.TrimSpace(authorizationID)
	if authorizationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_authorization_id is required")
	}
	if m.logg != nil {
		ctx = m.logg.WithAuthorizationID(m.logg.WithUserID(ctx, callerID.String()), authorizationID)
	}

	existing, err := m.repo.FindByAuthorizationID(ctx, authorizationID)
	switch {
	case err == nil:
		if existing.ClientID != callerID {
			m.fraud(ctx, existing.ClientID.String())
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "authorization belongs to another buyer")
		}
		m.metrics.Confirmation("duplicate")
		return existing, nil
	case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil, err
	}

	auth, err := m.payments.GetAuthorization(ctx, authorizationID)
	if err != nil {
		m.metrics.Confirmation("provider_error")
		return nil, err
	}
	if auth.Status != pkgstripe.StatusRequiresCapture {
		m.metrics.Confirmation("not_capturable")
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "authorization is %s", auth.Status).
			WithDetails(map[string]any{"status": auth.Status})
	}

	if raw, ok := auth.Metadata[metadata.KeyClientID]; ok && raw != callerID.String() {
		m.fraud(ctx, raw)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "authorization belongs to another buyer")
	}
	md, err := metadata.Decode(auth.Metadata)
	if err != nil {
		m.metrics.Confirmation("invalid_metadata")
		return nil, err
	}

	order, err := m.rebuild(ctx, auth, md)
	if err != nil {
		return nil, err
	}
	return m.persist(ctx, order)
}

// rebuild re-resolves the catalog and recomputes the estimate recorded in md.
func (m *Materializer) rebuild(ctx context.Context, auth *pkgstripe.Authorization, md *metadata.Authorization) (*models.Order, error) {
	lines := make([]checkout.CartLine, 0, len(md.LineItems))
	for _, item := range md.LineItems {
		lines = append(lines, checkout.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	groups, err := m.partitioner.Partition(ctx, lines)
	if err != nil {
		m.metrics.Confirmation("catalog_error")
		return nil, err
	}
	if len(groups) != 1 || groups[0].StorefrontID != md.StorefrontID {
		m.metrics.Confirmation("invalid_metadata")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization line items do not belong to its storefront")
	}

	estimate := checkout.EstimateGroup(groups[0], md.DeliveryLocation, md.TimeSlots, md.PlatformFeeBPS)
	totals := estimate.Totals
	if totals.TotalPriceCents != auth.AmountCents {
		m.metrics.Confirmation("price_mismatch")
		m.voidMismatch(ctx, auth.ID, totals.TotalPriceCents, auth.AmountCents)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order total changed since authorization; please check out again").
			WithDetails(map[string]any{"authorized_cents": auth.AmountCents, "current_cents": totals.TotalPriceCents})
	}

	code, err := newVerificationCode()
	if err != nil {
		return nil, err
	}

	group := estimate.Group
	items := make([]types.OrderLineItem, 0, len(group.Items))
	for _, item := range group.Items {
		items = append(items, types.OrderLineItem{
			ProductID:      item.ProductID.String(),
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			WeightKg:       item.WeightKg,
			VolumeM3:       item.VolumeM3,
			LogisticsClass: string(item.LogisticsClass),
		})
	}

	at := m.now().UTC()
	transferGroup := auth.TransferGroup
	if transferGroup == "" {
		transferGroup = md.TransferGroup
	}
	currency := auth.Currency
	if currency == "" {
		currency = "eur"
	}

	return &models.Order{
		ClientID:                 md.ClientID,
		StorefrontID:             group.StorefrontID,
		LineItems:                items,
		Currency:                 currency,
		ProductTotalCents:        totals.ProductTotalCents,
		DeliveryFeeCents:         totals.DeliveryFeeCents,
		VendorParticipationCents: totals.VendorParticipationCents,
		TotalDeliveryChargeCents: totals.TotalDeliveryChargeCents,
		TotalPriceCents:          totals.TotalPriceCents,
		PlatformFeeCents:         totals.PlatformFeeCents,
		DeliveryAddress:          md.DeliveryAddress,
		DeliveryLocation:         md.DeliveryLocation,
		StorefrontName:           group.Storefront.Name,
		StorefrontAddress:        group.Storefront.Address,
		StorefrontLocation:       group.Storefront.Location,
		PaymentAuthorizationID:   auth.ID,
		TransferGroup:            transferGroup,
		VendorPayoutID:           group.Storefront.OwnerPayoutAccountID,
		CaptureState:             enums.CaptureAuthorized,
		DeliveryState:            enums.DeliveryPending,
		CaptureHistory: types.StateHistory{
			{State: string(enums.CaptureAuthorized), At: at, Source: SourceCheckout},
		},
		DeliveryHistory: types.StateHistory{
			{State: string(enums.DeliveryPending), At: at, Source: SourceCheckout},
		},
		VerificationCode: code,
		Logistics:        estimate.Result.Snapshot(),
	}, nil
}

// persist inserts order, retrying order number collisions. A concurrent
// confirmation of the same authorization wins and its order is returned.
func (m *Materializer) persist(ctx context.Context, order *models.Order) (*models.Order, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := newOrderNumber()
		if err != nil {
			return nil, err
		}
		order.ID = uuid.New()
		order.OrderNumber = number

		err = m.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := m.repo.WithTx(tx).Create(ctx, order); err != nil {
				return err
			}
			if err := m.authorizations.WithTx(tx).MarkConfirmed(ctx, order.PaymentAuthorizationID); err != nil {
				return err
			}
			return m.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID.String(),
				Actor:         &outbox.ActorRef{UserID: order.ClientID.String(), Role: string(enums.RoleBuyer)},
				OccurredAt:    order.CaptureHistory[0].At,
				Data: payloads.OrderCreatedEvent{
					OrderID:                order.ID.String(),
					OrderNumber:            order.OrderNumber,
					ClientID:               order.ClientID.String(),
					StorefrontID:           order.StorefrontID.String(),
					PaymentAuthorizationID: order.PaymentAuthorizationID,
					TotalPriceCents:        order.TotalPriceCents,
					DeliveryFeeCents:       order.DeliveryFeeCents,
					Currency:               order.Currency,
				},
			})
		})
		if err == nil {
			m.metrics.Confirmation("created")
			if m.logg != nil {
				m.logg.Info(m.logg.WithOrderID(ctx, order.ID.String()), "order materialized")
			}
			return order, nil
		}
		if !db.IsUniqueViolation(err, models.OrderPaymentAuthorizationConstraint) &&
			!db.IsUniqueViolation(err, models.OrderNumberConstraint) {
			m.metrics.Confirmation("error")
			if pkgerrors.As(err) != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		existing, findErr := m.repo.FindByAuthorizationID(ctx, order.PaymentAuthorizationID)
		if findErr == nil {
			m.metrics.Confirmation("duplicate")
			return existing, nil
		}
		if !pkgerrors.IsCode(findErr, pkgerrors.CodeNotFound) {
			return nil, findErr
		}
	}
	m.metrics.Confirmation("error")
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}

func (m *Materializer) voidMismatch(ctx context.Context, authorizationID string, current, authorized int64) {
	if m.logg != nil {
		m.logg.Warn(m.logg.WithFields(ctx, map[string]any{
			"authorized_cents": authorized,
			"current_cents":    current,
		}), "confirmation total mismatch, voiding authorization")
	}
	status := enums.AuthorizationCanceled
	var lastError *string
	if err := m.payments.CancelAuthorization(ctx, authorizationID); err != nil {
		status = enums.AuthorizationOrphaned
		msg := err.Error()
		lastError = &msg
	} else {
		reason := reasonPriceChanged
		lastError = &reason
	}
	if err := m.authorizations.UpdateStatus(ctx, authorizationID, status, lastError); err != nil && m.logg != nil {
		m.logg.Error(ctx, "record voided authorization", err)
	}
}

func (m *Materializer) fraud(ctx context.Context, ownerID string) {
	m.metrics.Confirmation("forbidden")
	if m.logg != nil {
		m.logg.Security(m.logg.WithField(ctx, "authorization_client_id", ownerID),
			"audit.fraud_confirmation", "confirmation attempted by a different buyer")
	}
}

func newOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return orderNumberPrefix + string(buf), nil
}

func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
