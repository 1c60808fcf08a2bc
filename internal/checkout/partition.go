package checkout

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/internal/catalog"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
)

// CartLine is one client-supplied cart entry.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// GroupItem is a cart line enriched with authoritative catalog data.
type GroupItem struct {
	ProductID      uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int64
	WeightKg       float64
	VolumeM3       float64
	LogisticsClass enums.LogisticsClass
}

func (i GroupItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// StorefrontGroup is the slice of a cart sold by one storefront.
type StorefrontGroup struct {
	StorefrontID      uuid.UUID
	Storefront        models.Storefront
	Items             []GroupItem
	ProductTotalCents int64
}

func (g StorefrontGroup) WeightKg() float64 {
	var total float64
	for _, item := range g.Items {
		total += item.WeightKg * float64(item.Quantity)
	}
	return total
}

func (g StorefrontGroup) VolumeM3() float64 {
	var total float64
	for _, item := range g.Items {
		total += item.VolumeM3 * float64(item.Quantity)
	}
	return total
}

// Partitioner splits carts by storefront using the catalog read model.
type Partitioner struct {
	catalog catalog.Repository
}

func NewPartitioner(repo catalog.Repository) *Partitioner {
	return &Partitioner{catalog: repo}
}

// Partition fails the whole cart when any product cannot be sold. Groups are
// ordered by storefront id and items by product id.
func (p *Partitioner) Partition(ctx context.Context, lines []CartLine) ([]StorefrontGroup, error) {
	merged, order, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	products, err := p.catalog.FindProductsByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	var missing []string
	byStorefront := map[uuid.UUID]*StorefrontGroup{}
	for _, productID := range order {
		product, ok := products[productID]
		if !ok || !product.IsActive {
			missing = append(missing, productID.String())
			continue
		}
		group, ok := byStorefront[product.StorefrontID]
		if !ok {
			group = &StorefrontGroup{StorefrontID: product.StorefrontID}
			byStorefront[product.StorefrontID] = group
		}
		item := GroupItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       merged[productID],
			UnitPriceCents: product.PriceCents,
			WeightKg:       product.WeightKg,
			VolumeM3:       product.VolumeM3,
			LogisticsClass: product.LogisticsClass,
		}
		group.Items = append(group.Items, item)
		group.ProductTotalCents += item.LineTotalCents()
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more products are unavailable").
			WithDetails(map[string]any{"product_ids": missing})
	}

	groups := make([]StorefrontGroup, 0, len(byStorefront))
	for storefrontID, group := range byStorefront {
		storefront, err := p.catalog.FindStorefront(ctx, storefrontID)
		if err != nil {
			return nil, err
		}
		if !storefront.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storefront not found").
				WithDetails(map[string]any{"storefront_id": storefrontID})
		}
		group.Storefront = *storefront
		groups = append(groups, *group)
	}
	slices.SortFunc(groups, func(a, b StorefrontGroup) int {
		return strings.Compare(a.StorefrontID.String(), b.StorefrontID.String())
	})
	return groups, nil
}

// mergeLines validates quantities and folds duplicate products, returning ids in sorted order.
func mergeLines(lines []CartLine) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(lines) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	merged := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if line.Quantity < 1 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		merged[line.ProductID] += line.Quantity
	}
	ids := make([]uuid.UUID, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return merged, ids, nil
}
