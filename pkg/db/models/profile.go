package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// Profile is the identity read model keyed by user id.
type Profile struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Role            enums.Role            `gorm:"column:role;type:user_role;not null"`
	DisplayName     string                `gorm:"column:display_name;not null"`
	DeliveryAddress *string               `gorm:"column:delivery_address"`
	Location        *types.GeographyPoint `gorm:"column:location;type:geography"`
	PayoutAccountID *string               `gorm:"column:payout_account_id"`
	Vehicle         *enums.Vehicle        `gorm:"column:vehicle;type:vehicle"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
