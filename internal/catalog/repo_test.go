package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/localdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

func TestFindProductsByIDsSkipsMissing(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	storefrontID := uuid.New()
	product := models.Product{ID: uuid.New(), StorefrontID: storefrontID, Name: "Tomatoes", PriceCents: 450, WeightKg: 1}
	require.NoError(t, db.Create(&product).Error)

	found, err := repo.FindProductsByIDs(context.Background(), []uuid.UUID{product.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(450), found[product.ID].PriceCents)
	assert.True(t, found[product.ID].IsActive)
}

func TestFindStorefrontNotFound(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.FindStorefront(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindStorefrontRoundTripsLocationAndPolicy(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	storefront := models.Storefront{
		ID:                uuid.New(),
		OwnerID:           uuid.New(),
		Name:              "Green Grocer",
		Address:           "1 rue de Rivoli",
		Location:          types.GeographyPoint{Lat: 48.8566, Lng: 2.3522},
		FeeSharingEnabled: true,
		FeeSharePercent:   decimal.NewNullDecimal(decimal.NewFromInt(30)),
	}
	require.NoError(t, db.Create(&storefront).Error)

	got, err := repo.FindStorefront(context.Background(), storefront.ID)
	require.NoError(t, err)
	assert.Equal(t, storefront.Location, got.Location)

	policy := FeeSharingPolicy(*got)
	share, capPercent := policy.Rates()
	assert.True(t, policy.Enabled)
	assert.True(t, share.Equal(decimal.NewFromInt(30)))
	assert.True(t, capPercent.Equal(decimal.NewFromInt(20)))
}
