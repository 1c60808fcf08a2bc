package checkout

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/api/middleware"
	"github.com/angelmondragon/localdrop-backend/api/responses"
	"github.com/angelmondragon/localdrop-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/internal/orders"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
)

const maxAddressLength = 500

type estimator interface {
	Estimate(ctx context.Context, clientID uuid.UUID, req checkoutsvc.EstimateRequest) (*checkoutsvc.Quote, error)
}

type authorizer interface {
	Authorize(ctx context.Context, clientID uuid.UUID, req checkoutsvc.EstimateRequest) (*checkoutsvc.AuthorizeResult, error)
}

type confirmer interface {
	Confirm(ctx context.Context, callerID uuid.UUID, authorizationID string) (*models.Order, error)
}

// Estimate prices the cart per storefront without touching the payment provider.
func Estimate(svc estimator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		principal, err := middleware.PrincipalFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.EstimateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Delivery.Address = validators.SanitizeString(payload.Delivery.Address, maxAddressLength)

		quote, err := svc.Estimate(r.Context(), principal.UserID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newEstimateResponse(quote))
	}
}

// Authorize opens one manual-capture hold per storefront in the cart.
func Authorize(svc authorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		principal, err := middleware.PrincipalFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.EstimateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Delivery.Address = validators.SanitizeString(payload.Delivery.Address, maxAddressLength)

		result, err := svc.Authorize(r.Context(), principal.UserID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAuthorizeResponse(result))
	}
}

type confirmRequest struct {
	PaymentAuthorizationID string `json:"payment_authorization_id" validate:"required,max=255"`
}

// Confirm turns a buyer-confirmed hold into an order. Replays return the same order.
func Confirm(svc confirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order materializer unavailable"))
			return
		}
		principal, err := middleware.PrincipalFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAuthorizationID(ctx, payload.PaymentAuthorizationID)
		}
		order, err := svc.Confirm(ctx, principal.UserID, strings.TrimSpace(payload.PaymentAuthorizationID))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.ViewFor(*order, enums.RoleBuyer))
	}
}
