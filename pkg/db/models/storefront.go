package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// Storefront is the catalog read model row for a seller. The catalog service owns writes.
type Storefront struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID              uuid.UUID            `gorm:"column:owner_id;type:uuid;not null"`
	Name                 string               `gorm:"column:name;not null"`
	Address              string               `gorm:"column:address;not null"`
	Location             types.GeographyPoint `gorm:"column:location;type:geography;not null"`
	OwnerPayoutAccountID *string              `gorm:"column:owner_payout_account_id"`
	FeeSharingEnabled    bool                 `gorm:"column:fee_sharing_enabled;not null;default:false"`
	FeeSharePercent      decimal.NullDecimal  `gorm:"column:fee_share_percent;type:numeric(5,2)"`
	FeeShareCapPercent   decimal.NullDecimal  `gorm:"column:fee_share_cap_percent;type:numeric(5,2)"`
	IsActive             bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
