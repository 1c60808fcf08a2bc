package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/localdrop-backend/internal/catalog"
	"github.com/angelmondragon/localdrop-backend/internal/logistics"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/maps"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// DeliveryInput selects where the cart is delivered. Coordinates win over a
// place id; with neither, the buyer profile default is used.
type DeliveryInput struct {
	Lat     *float64 `json:"lat" validate:"required_with=Lng,omitempty,latitude"`
	Lng     *float64 `json:"lng" validate:"required_with=Lat,omitempty,longitude"`
	PlaceID string   `json:"place_id" validate:"omitempty,max=512"`
	Address string   `json:"address" validate:"omitempty,max=500"`
}

// EstimateRequest is the cart plus delivery target.
type EstimateRequest struct {
	Lines    []CartLine    `json:"items" validate:"required,min=1,dive"`
	Delivery DeliveryInput `json:"delivery"`
}

// Destination is the resolved delivery target.
type Destination struct {
	Location types.GeographyPoint `json:"location"`
	Address  string               `json:"address"`
}

// GroupEstimate is the priced view of one storefront group.
type GroupEstimate struct {
	Group  StorefrontGroup
	Result logistics.Result
	Totals Totals
}

// Quote is the estimate of a whole cart. Every group shares the same time slots.
type Quote struct {
	Destination Destination
	TimeSlots   logistics.SlotSet
	Groups      []GroupEstimate
}

type placeResolver interface {
	ResolvePlace(ctx context.Context, placeID string) (*maps.Place, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// EstimateGroup prices one group. It reads nothing but its arguments.
func EstimateGroup(group StorefrontGroup, dest types.GeographyPoint, slots logistics.SlotSet, platformFeeBPS int64) GroupEstimate {
	result := logistics.Estimate(logistics.Input{
		WeightKg:     group.WeightKg(),
		VolumeM3:     group.VolumeM3(),
		Origin:       group.Storefront.Location,
		Destination:  dest,
		Slots:        slots,
		ProductTotal: logistics.FromCents(group.ProductTotalCents),
		Policy:       catalog.FeeSharingPolicy(group.Storefront),
	})
	return GroupEstimate{
		Group:  group,
		Result: result,
		Totals: ComputeTotals(group.ProductTotalCents, result, platformFeeBPS),
	}
}

// Estimate partitions the cart and prices every group concurrently.
func (s *Service) Estimate(ctx context.Context, clientID uuid.UUID, req EstimateRequest) (*Quote, error) {
	dest, err := s.resolveDestination(ctx, clientID, req.Delivery)
	if err != nil {
		return nil, err
	}
	groups, err := s.partitioner.Partition(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	slots := logistics.TimeSlotsAt(s.now(), s.marketplace.Location())
	estimates := make([]GroupEstimate, len(groups))

	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			estimates[i] = EstimateGroup(group, dest.Location, slots, s.marketplace.PlatformFeeBPS)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Quote{Destination: dest, TimeSlots: slots, Groups: estimates}, nil
}

func (s *Service) resolveDestination(ctx context.Context, clientID uuid.UUID, in DeliveryInput) (Destination, error) {
	switch {
	case in.Lat != nil || in.Lng != nil:
		if in.Lat == nil || in.Lng == nil {
			return Destination{}, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together")
		}
		point := types.GeographyPoint{Lat: *in.Lat, Lng: *in.Lng}
		if err := point.Validate(); err != nil {
			return Destination{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery location")
		}
		return Destination{Location: point, Address: strings.TrimSpace(in.Address)}, nil

	case strings.TrimSpace(in.PlaceID) != "":
		if s.places == nil {
			return Destination{}, pkgerrors.New(pkgerrors.CodeValidation, "place lookup is not available; send lat and lng")
		}
		place, err := s.places.ResolvePlace(ctx, in.PlaceID)
		if err != nil {
			return Destination{}, err
		}
		if err := place.Location.Validate(); err != nil {
			return Destination{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery location")
		}
		address := strings.TrimSpace(in.Address)
		if address == "" {
			address = place.FormattedAddress
		}
		return Destination{Location: place.Location, Address: address}, nil
	}

	profile, err := s.profiles.FindByID(ctx, clientID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return Destination{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery location is required")
		}
		return Destination{}, err
	}
	if profile.Location == nil {
		return Destination{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery location is required")
	}
	if err := profile.Location.Validate(); err != nil {
		return Destination{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery location")
	}
	dest := Destination{Location: *profile.Location, Address: strings.TrimSpace(in.Address)}
	if dest.Address == "" && profile.DeliveryAddress != nil {
		dest.Address = *profile.DeliveryAddress
	}
	return dest, nil
}
