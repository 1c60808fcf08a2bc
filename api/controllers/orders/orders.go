package orders

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/api/middleware"
	"github.com/angelmondragon/localdrop-backend/api/responses"
	"github.com/angelmondragon/localdrop-backend/api/validators"
	internalorders "github.com/angelmondragon/localdrop-backend/internal/orders"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/pagination"
)

type orderReader interface {
	Get(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderView, error)
	List(ctx context.Context, actor internalorders.Actor, filter internalorders.ListFilter, params pagination.Params) (*internalorders.OrderList, error)
}

type vendorActor interface {
	VendorAct(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, action internalorders.VendorAction) (*internalorders.OrderView, error)
}

type courierActor interface {
	CourierAct(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, action internalorders.CourierAction, verificationCode string) (*internalorders.OrderView, error)
	CourierJobs(ctx context.Context, actor internalorders.Actor, limit int) ([]internalorders.CourierJob, error)
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{
		UserID:       principal.UserID,
		Role:         principal.Role,
		StorefrontID: principal.StorefrontID,
	}, nil
}

// List pages the caller's orders. Scope comes from the token role, never from the query.
func List(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filter internalorders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("delivery_state")); raw != "" {
			state, err := enums.ParseDeliveryState(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_state"))
				return
			}
			filter.DeliveryState = &state
		}

		list, err := svc.List(r.Context(), actor, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, list.Orders, list.NextCursor)
	}
}

// Detail returns one order projected for the caller's role.
func Detail(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseVendorAction(raw string) (internalorders.VendorAction, error) {
	switch action := internalorders.VendorAction(strings.ToLower(strings.TrimSpace(raw))); action {
	case internalorders.VendorAccept, internalorders.VendorPrepare, internalorders.VendorRefuse:
		return action, nil
	default:
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown vendor action %q", raw)
	}
}

// VendorAction handles POST /vendor/orders/{orderId}/{action}.
func VendorAction(svc vendorActor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := parseVendorAction(chi.URLParam(r, "action"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		view, err := svc.VendorAct(ctx, actor, orderID, action)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type courierActionRequest struct {
	VerificationCode string `json:"verification_code" validate:"omitempty,max=16"`
}

func parseCourierAction(raw string) (internalorders.CourierAction, error) {
	switch action := internalorders.CourierAction(strings.ToLower(strings.TrimSpace(raw))); action {
	case internalorders.CourierClaim, internalorders.CourierPickup, internalorders.CourierDeliver:
		return action, nil
	default:
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown courier action %q", raw)
	}
}

// CourierAction handles POST /courier/orders/{orderId}/{action}. Deliver reads
// the verification code from the body; other actions accept an empty body.
func CourierAction(svc courierActor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := parseCourierAction(chi.URLParam(r, "action"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload courierActionRequest
		if action == internalorders.CourierDeliver {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		} else {
			_, _ = io.Copy(io.Discard, r.Body)
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		view, err := svc.CourierAct(ctx, actor, orderID, action, payload.VerificationCode)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CourierJobs lists claimable orders nearest first.
func CourierJobs(svc courierActor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobs, err := svc.CourierJobs(r.Context(), actor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jobs)
	}
}
