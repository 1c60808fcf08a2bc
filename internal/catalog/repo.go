package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/logistics"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
)

// Repository reads the storefront and product tables owned by the catalog service.
type Repository interface {
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	FindStorefront(ctx context.Context, id uuid.UUID) (*models.Storefront, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindProductsByIDs returns only rows that exist; callers decide how to treat gaps.
func (r *repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) FindStorefront(ctx context.Context, id uuid.UUID) (*models.Storefront, error) {
	var row models.Storefront
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storefront not found").WithDetails(map[string]any{"storefront_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storefront")
	}
	return &row, nil
}

// FeeSharingPolicy reads the storefront's participation settings.
func FeeSharingPolicy(s models.Storefront) logistics.FeeSharingPolicy {
	return logistics.FeeSharingPolicy{
		Enabled:      s.FeeSharingEnabled,
		SharePercent: s.FeeSharePercent,
		CapPercent:   s.FeeShareCapPercent,
	}
}
