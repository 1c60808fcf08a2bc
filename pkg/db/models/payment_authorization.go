package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
)

// PaymentAuthorization shadows a provider manual-capture hold so partially failed
// checkouts can be compensated and swept. The id is the provider's intent id.
type PaymentAuthorization struct {
	ID                string                    `gorm:"column:id;primaryKey"`
	CheckoutSessionID uuid.UUID                 `gorm:"column:checkout_session_id;type:uuid;not null;index"`
	ClientID          uuid.UUID                 `gorm:"column:client_id;type:uuid;not null"`
	StorefrontID      uuid.UUID                 `gorm:"column:storefront_id;type:uuid;not null"`
	AmountCents       int64                     `gorm:"column:amount_cents;not null"`
	Currency          string                    `gorm:"column:currency;not null"`
	TransferGroup     string                    `gorm:"column:transfer_group;not null"`
	Status            enums.AuthorizationStatus `gorm:"column:status;type:authorization_status;not null;default:'open'"`
	LastError         *string                   `gorm:"column:last_error"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
