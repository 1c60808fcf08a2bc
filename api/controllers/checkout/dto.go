package checkout

import (
	"github.com/google/uuid"

	checkoutsvc "github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

type destinationResponse struct {
	Location types.GeographyPoint `json:"location"`
	Address  string               `json:"address,omitempty"`
}

type itemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

type groupResponse struct {
	StorefrontID   uuid.UUID               `json:"storefront_id"`
	StorefrontName string                  `json:"storefront_name"`
	Items          []itemResponse          `json:"items"`
	Logistics      types.LogisticsSnapshot `json:"logistics"`
	Totals         checkoutsvc.Totals      `json:"totals"`
}

type estimateResponse struct {
	Destination destinationResponse `json:"destination"`
	TimeSlots   []string            `json:"time_slots"`
	Groups      []groupResponse     `json:"groups"`
}

type authorizationResponse struct {
	AuthorizationID string        `json:"payment_authorization_id"`
	ClientSecret    string        `json:"client_secret"`
	TransferGroup   string        `json:"transfer_group"`
	Group           groupResponse `json:"group"`
}

type authorizeResponse struct {
	CheckoutSessionID uuid.UUID               `json:"checkout_session_id"`
	Destination       destinationResponse     `json:"destination"`
	TimeSlots         []string                `json:"time_slots"`
	Authorizations    []authorizationResponse `json:"authorizations"`
}

func newGroupResponse(estimate checkoutsvc.GroupEstimate) groupResponse {
	items := make([]itemResponse, 0, len(estimate.Group.Items))
	for _, item := range estimate.Group.Items {
		items = append(items, itemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents(),
		})
	}
	return groupResponse{
		StorefrontID:   estimate.Group.StorefrontID,
		StorefrontName: estimate.Group.Storefront.Name,
		Items:          items,
		Logistics:      estimate.Result.Snapshot(),
		Totals:         estimate.Totals,
	}
}

func newDestinationResponse(dest checkoutsvc.Destination) destinationResponse {
	return destinationResponse{Location: dest.Location, Address: dest.Address}
}

func newEstimateResponse(quote *checkoutsvc.Quote) estimateResponse {
	if quote == nil {
		return estimateResponse{}
	}
	groups := make([]groupResponse, 0, len(quote.Groups))
	for _, group := range quote.Groups {
		groups = append(groups, newGroupResponse(group))
	}
	return estimateResponse{
		Destination: newDestinationResponse(quote.Destination),
		TimeSlots:   quote.TimeSlots.Strings(),
		Groups:      groups,
	}
}

func newAuthorizeResponse(result *checkoutsvc.AuthorizeResult) authorizeResponse {
	if result == nil {
		return authorizeResponse{}
	}
	auths := make([]authorizationResponse, 0, len(result.Authorizations))
	for _, auth := range result.Authorizations {
		auths = append(auths, authorizationResponse{
			AuthorizationID: auth.AuthorizationID,
			ClientSecret:    auth.ClientSecret,
			TransferGroup:   auth.TransferGroup,
			Group:           newGroupResponse(auth.Estimate),
		})
	}
	return authorizeResponse{
		CheckoutSessionID: result.CheckoutSessionID,
		Destination:       newDestinationResponse(result.Destination),
		TimeSlots:         result.TimeSlots,
		Authorizations:    auths,
	}
}
