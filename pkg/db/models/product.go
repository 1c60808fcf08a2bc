package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
)

// Product is the catalog read model row used for pricing and logistics.
type Product struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	StorefrontID   uuid.UUID            `gorm:"column:storefront_id;type:uuid;not null;index"`
	Name           string               `gorm:"column:name;not null"`
	PriceCents     int64                `gorm:"column:price_cents;not null"`
	WeightKg       float64              `gorm:"column:weight_kg;not null;default:0"`
	VolumeM3       float64              `gorm:"column:volume_m3;not null;default:0"`
	LogisticsClass enums.LogisticsClass `gorm:"column:logistics_class;type:logistics_class;not null;default:'standard'"`
	IsActive       bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
