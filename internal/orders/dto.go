package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// Actor is the authenticated principal performing a read or an action.
type Actor struct {
	UserID       uuid.UUID
	Role         enums.Role
	StorefrontID *uuid.UUID
}

// ListFilter narrows order lists. Role scoping is applied by the service.
type ListFilter struct {
	ClientID      *uuid.UUID
	StorefrontID  *uuid.UUID
	CourierID     *uuid.UUID
	DeliveryState *enums.DeliveryState
}

// OrderView is the role-filtered projection of an order.
type OrderView struct {
	ID                       uuid.UUID               `json:"id"`
	OrderNumber              string                  `json:"order_number"`
	ClientID                 uuid.UUID               `json:"client_id"`
	StorefrontID             uuid.UUID               `json:"storefront_id"`
	StorefrontName           string                  `json:"storefront_name"`
	StorefrontAddress        string                  `json:"storefront_address"`
	StorefrontLocation       types.GeographyPoint    `json:"storefront_location"`
	DeliveryAddress          string                  `json:"delivery_address"`
	DeliveryLocation         types.GeographyPoint    `json:"delivery_location"`
	LineItems                []types.OrderLineItem   `json:"line_items"`
	Currency                 string                  `json:"currency"`
	ProductTotalCents        int64                   `json:"product_total_cents"`
	DeliveryFeeCents         int64                   `json:"delivery_fee_cents"`
	VendorParticipationCents int64                   `json:"vendor_participation_cents"`
	TotalDeliveryChargeCents int64                   `json:"total_delivery_charge_cents"`
	TotalPriceCents          int64                   `json:"total_price_cents"`
	PlatformFeeCents         *int64                  `json:"platform_fee_cents,omitempty"`
	PaymentAuthorizationID   *string                 `json:"payment_authorization_id,omitempty"`
	TransferGroup            *string                 `json:"transfer_group,omitempty"`
	VendorPayoutID           *string                 `json:"vendor_payout_id,omitempty"`
	CourierID                *uuid.UUID              `json:"courier_id,omitempty"`
	CaptureState             enums.CaptureState      `json:"capture_state"`
	DeliveryState            enums.DeliveryState     `json:"delivery_state"`
	CaptureHistory           types.StateHistory      `json:"capture_history"`
	DeliveryHistory          types.StateHistory      `json:"delivery_history"`
	VerificationCode         *string                 `json:"verification_code,omitempty"`
	Logistics                types.LogisticsSnapshot `json:"logistics"`
	CancellationReason       *string                 `json:"cancellation_reason,omitempty"`
	CreatedAt                time.Time               `json:"created_at"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

// OrderList is one page of orders plus the cursor of the next page.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// CourierJob is a claimable order with its distance from the courier.
type CourierJob struct {
	Order      OrderView `json:"order"`
	DistanceKm float64   `json:"distance_km"`
}

// ViewFor projects order for role. Buyers see the verification code; vendors do
// not; couriers see neither the code nor the vendor payout account.
func ViewFor(order models.Order, role enums.Role) OrderView {
	view := OrderView{
		ID:                       order.ID,
		OrderNumber:              order.OrderNumber,
		ClientID:                 order.ClientID,
		StorefrontID:             order.StorefrontID,
		StorefrontName:           order.StorefrontName,
		StorefrontAddress:        order.StorefrontAddress,
		StorefrontLocation:       order.StorefrontLocation,
		DeliveryAddress:          order.DeliveryAddress,
		DeliveryLocation:         order.DeliveryLocation,
		LineItems:                order.LineItems,
		Currency:                 order.Currency,
		ProductTotalCents:        order.ProductTotalCents,
		DeliveryFeeCents:         order.DeliveryFeeCents,
		VendorParticipationCents: order.VendorParticipationCents,
		TotalDeliveryChargeCents: order.TotalDeliveryChargeCents,
		TotalPriceCents:          order.TotalPriceCents,
		CourierID:                order.CourierID,
		CaptureState:             order.CaptureState,
		DeliveryState:            order.DeliveryState,
		CaptureHistory:           order.CaptureHistory,
		DeliveryHistory:          order.DeliveryHistory,
		Logistics:                order.Logistics,
		CancellationReason:       order.CancellationReason,
		CreatedAt:                order.CreatedAt,
		UpdatedAt:                order.UpdatedAt,
	}

	switch role {
	case enums.RoleBuyer:
		view.VerificationCode = ptr(order.VerificationCode)
	case enums.RoleVendor:
		view.PlatformFeeCents = ptr(order.PlatformFeeCents)
		view.VendorPayoutID = order.VendorPayoutID
	case enums.RoleAdmin:
		view.VerificationCode = ptr(order.VerificationCode)
		view.PlatformFeeCents = ptr(order.PlatformFeeCents)
		view.PaymentAuthorizationID = ptr(order.PaymentAuthorizationID)
		view.TransferGroup = ptr(order.TransferGroup)
		view.VendorPayoutID = order.VendorPayoutID
	}
	return view
}

func viewsFor(rows []models.Order, role enums.Role) []OrderView {
	out := make([]OrderView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ViewFor(row, role))
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
