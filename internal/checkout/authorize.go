package checkout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/checkout/metadata"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox/payloads"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
)

const (
	compensationCanceled = "canceled"
	compensationOrphaned = "orphaned"

	reasonCheckoutFailed = "checkout_failed"
	reasonStale          = "stale"
)

// GroupAuthorization is the hold opened for one storefront group.
type GroupAuthorization struct {
	AuthorizationID string
	ClientSecret    string
	TransferGroup   string
	Estimate        GroupEstimate
}

// AuthorizeResult is returned to the buyer, who confirms each hold client side.
type AuthorizeResult struct {
	CheckoutSessionID uuid.UUID
	Destination       Destination
	TimeSlots         []string
	Authorizations    []GroupAuthorization
}

// TransferGroup links an authorization to the transfers paid out of it.
func TransferGroup(at time.Time, storefrontID uuid.UUID) string {
	return "tg_" + strconv.FormatInt(at.UnixMilli(), 10) + "_" + storefrontID.String()
}

// Authorize opens one manual-capture hold per storefront. If any group fails,
// holds already opened for the other groups are voided before returning.
func (s *Service) Authorize(ctx context.Context, clientID uuid.UUID, req EstimateRequest) (*AuthorizeResult, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	quote, err := s.Estimate(ctx, clientID, req)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	openedAt := s.now().UTC()
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"checkout_session_id": sessionID.String(),
			"client_id":           clientID.String(),
			"storefront_count":    len(quote.Groups),
		})
	}

	results := make([]*GroupAuthorization, len(quote.Groups))
	errs := make([]error, len(quote.Groups))

	// Every call runs to completion so no hold is left behind untracked.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, estimate := range quote.Groups {
		g.Go(func() error {
			results[i], errs[i] = s.authorizeGroup(ctx, clientID, sessionID, openedAt, quote, estimate)
			return nil
		})
	}
	_ = g.Wait()

	if combined := multierr.Combine(errs...); combined != nil {
		s.metrics.Authorization("failed")
		if s.logg != nil {
			s.logg.Error(ctx, "checkout authorization failed, compensating", combined)
		}
		s.compensate(context.WithoutCancel(ctx), results)
		return nil, firstError(errs)
	}

	out := &AuthorizeResult{
		CheckoutSessionID: sessionID,
		Destination:       quote.Destination,
		TimeSlots:         quote.TimeSlots.Strings(),
		Authorizations:    make([]GroupAuthorization, 0, len(results)),
	}
	for _, result := range results {
		out.Authorizations = append(out.Authorizations, *result)
	}
	s.metrics.Authorization("opened")
	if s.logg != nil {
		s.logg.Info(ctx, "checkout authorized")
	}
	return out, nil
}

func (s *Service) authorizeGroup(
	ctx context.Context,
	clientID, sessionID uuid.UUID,
	openedAt time.Time,
	quote *Quote,
	estimate GroupEstimate,
) (*GroupAuthorization, error) {
	storefrontID := estimate.Group.StorefrontID
	transferGroup := TransferGroup(openedAt, storefrontID)

	lineItems := make([]metadata.LineItemRef, 0, len(estimate.Group.Items))
	for _, item := range estimate.Group.Items {
		lineItems = append(lineItems, metadata.LineItemRef{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	md, err := metadata.Encode(metadata.Authorization{
		ClientID:                 clientID,
		CheckoutSessionID:        sessionID,
		StorefrontID:             storefrontID,
		LineItems:                lineItems,
		DeliveryLocation:         quote.Destination.Location,
		DeliveryAddress:          quote.Destination.Address,
		TimeSlots:                quote.TimeSlots,
		WeightKg:                 estimate.Result.WeightKg,
		VolumeM3:                 estimate.Result.VolumeM3,
		BillableWeightKg:         estimate.Result.BillableWeightKg,
		DistanceKm:               estimate.Result.DistanceKm,
		Vehicle:                  estimate.Result.RecommendedVehicle,
		DelayMinutes:             estimate.Result.EstimatedDelayMinutes,
		DelayLabel:               estimate.Result.EstimatedDelay,
		ProductTotalCents:        estimate.Totals.ProductTotalCents,
		DeliveryFeeCents:         estimate.Totals.DeliveryFeeCents,
		VendorParticipationCents: estimate.Totals.VendorParticipationCents,
		PlatformFeeBPS:           s.marketplace.PlatformFeeBPS,
		TransferGroup:            transferGroup,
	})
	if err != nil {
		return nil, err
	}

	auth, err := s.payments.CreateAuthorization(ctx, pkgstripe.AuthorizationRequest{
		AmountCents:    estimate.Totals.TotalPriceCents,
		Currency:       s.currency,
		TransferGroup:  transferGroup,
		Description:    fmt.Sprintf("LocalDrop order from %s", estimate.Group.Storefront.Name),
		Metadata:       md,
		IdempotencyKey: "auth_" + sessionID.String() + "_" + storefrontID.String(),
	})
	if err != nil {
		return nil, err
	}

	result := &GroupAuthorization{
		AuthorizationID: auth.ID,
		ClientSecret:    auth.ClientSecret,
		TransferGroup:   transferGroup,
		Estimate:        estimate,
	}

	shadow := &models.PaymentAuthorization{
		ID:                auth.ID,
		CheckoutSessionID: sessionID,
		ClientID:          clientID,
		StorefrontID:      storefrontID,
		AmountCents:       estimate.Totals.TotalPriceCents,
		Currency:          s.currency,
		TransferGroup:     transferGroup,
		Status:            enums.AuthorizationOpen,
	}
	if err := s.authorizations.Create(ctx, shadow); err != nil {
		// The hold exists at the provider; hand it back so compensation voids it.
		return result, err
	}
	return result, nil
}

// compensate voids every hold opened in a failed checkout.
func (s *Service) compensate(ctx context.Context, results []*GroupAuthorization) {
	for _, result := range results {
		if result == nil {
			continue
		}
		row := models.PaymentAuthorization{
			ID:            result.AuthorizationID,
			StorefrontID:  result.Estimate.Group.StorefrontID,
			AmountCents:   result.Estimate.Totals.TotalPriceCents,
			TransferGroup: result.TransferGroup,
		}
		if existing, err := s.authorizations.FindByID(ctx, result.AuthorizationID); err == nil {
			row = *existing
		}
		outcome, err := s.release(ctx, row, reasonCheckoutFailed)
		s.metrics.Compensation(outcome)
		if err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithAuthorizationID(ctx, row.ID), "record compensation", err)
		}
	}
}

// ReleaseStaleAuthorizations voids open or orphaned holds older than cutoff that
// never produced an order. Failures are collected; the sweep continues.
func (s *Service) ReleaseStaleAuthorizations(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	rows, err := s.authorizations.ListStale(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	var (
		released int
		errs     error
	)
	for _, row := range rows {
		// A confirmation may have landed since the list was read.
		current, err := s.authorizations.FindByID(ctx, row.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reload authorization %s: %w", row.ID, err))
			continue
		}
		if current.Status != enums.AuthorizationOpen && current.Status != enums.AuthorizationOrphaned {
			if s.logg != nil {
				s.logg.Debug(s.logg.WithField(s.logg.WithAuthorizationID(ctx, row.ID), "status", current.Status), "stale authorization no longer releasable")
			}
			continue
		}
		outcome, err := s.release(ctx, *current, reasonStale)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release authorization %s: %w", row.ID, err))
			continue
		}
		if outcome == compensationCanceled {
			released++
		}
	}
	return released, errs
}

// release cancels the hold at the provider and records the outcome on the shadow
// row. A failed cancel leaves the row orphaned for the next sweep.
func (s *Service) release(ctx context.Context, row models.PaymentAuthorization, reason string) (string, error) {
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithAuthorizationID(ctx, row.ID)
	}

	status := enums.AuthorizationCanceled
	eventType := enums.EventAuthorizationCanceled
	outcome := compensationCanceled
	var lastError *string

	if cancelErr := s.payments.CancelAuthorization(ctx, row.ID); cancelErr != nil {
		status = enums.AuthorizationOrphaned
		eventType = enums.EventAuthorizationOrphaned
		outcome = compensationOrphaned
		msg := cancelErr.Error()
		lastError = &msg
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", msg), "payment authorization left orphaned")
		}
	}

	if row.Status == enums.AuthorizationOrphaned && status == enums.AuthorizationOrphaned {
		// Still orphaned; the event was already emitted.
		return outcome, s.authorizations.UpdateStatus(ctx, row.ID, status, lastError)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.authorizations.WithTx(tx).UpdateStatus(ctx, row.ID, status, lastError); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePaymentAuthorization,
			AggregateID:   row.ID,
			Actor:         outbox.SystemActor("checkout"),
			Data: payloads.AuthorizationEvent{
				AuthorizationID:   row.ID,
				CheckoutSessionID: row.CheckoutSessionID.String(),
				StorefrontID:      row.StorefrontID.String(),
				AmountCents:       row.AmountCents,
				Reason:            reason,
			},
		})
	})
	if err == nil && s.logg != nil && status == enums.AuthorizationCanceled {
		s.logg.Info(s.logg.WithField(logCtx, "reason", reason), "payment authorization released")
	}
	return outcome, err
}

// firstError prefers a typed error so callers see the provider's classification.
func firstError(errs []error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if pkgerrors.As(err) != nil {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	if fallback == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fallback, "authorize checkout")
}
