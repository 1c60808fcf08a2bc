package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

const (
	OrderPaymentAuthorizationConstraint = "orders_payment_authorization_id_key"
	OrderNumberConstraint               = "orders_order_number_key"
)

// Order is the durable record materialized from one confirmed payment authorization.
type Order struct {
	ID                       uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber              string                  `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	ClientID                 uuid.UUID               `gorm:"column:client_id;type:uuid;not null;index"`
	StorefrontID             uuid.UUID               `gorm:"column:storefront_id;type:uuid;not null;index"`
	LineItems                []types.OrderLineItem   `gorm:"column:line_items;type:jsonb;serializer:json;not null"`
	Currency                 string                  `gorm:"column:currency;not null;default:'eur'"`
	ProductTotalCents        int64                   `gorm:"column:product_total_cents;not null"`
	DeliveryFeeCents         int64                   `gorm:"column:delivery_fee_cents;not null"`
	VendorParticipationCents int64                   `gorm:"column:vendor_participation_cents;not null;default:0"`
	TotalDeliveryChargeCents int64                   `gorm:"column:total_delivery_charge_cents;not null"`
	TotalPriceCents          int64                   `gorm:"column:total_price_cents;not null"`
	PlatformFeeCents         int64                   `gorm:"column:platform_fee_cents;not null;default:0"`
	DeliveryAddress          string                  `gorm:"column:delivery_address;not null"`
	DeliveryLocation         types.GeographyPoint    `gorm:"column:delivery_location;type:geography;not null"`
	StorefrontName           string                  `gorm:"column:storefront_name;not null"`
	StorefrontAddress        string                  `gorm:"column:storefront_address;not null"`
	StorefrontLocation       types.GeographyPoint    `gorm:"column:storefront_location;type:geography;not null"`
	PaymentAuthorizationID   string                  `gorm:"column:payment_authorization_id;not null;uniqueIndex:orders_payment_authorization_id_key"`
	TransferGroup            string                  `gorm:"column:transfer_group;not null"`
	VendorPayoutID           *string                 `gorm:"column:vendor_payout_id"`
	CourierID                *uuid.UUID              `gorm:"column:courier_id;type:uuid;index"`
	CourierPayoutID          *string                 `gorm:"column:courier_payout_id"`
	VendorTransferID         *string                 `gorm:"column:vendor_transfer_id"`
	CourierTransferID        *string                 `gorm:"column:courier_transfer_id"`
	CaptureState             enums.CaptureState      `gorm:"column:capture_state;type:capture_state;not null;default:'authorized'"`
	DeliveryState            enums.DeliveryState     `gorm:"column:delivery_state;type:delivery_state;not null;default:'pending'"`
	CaptureHistory           types.StateHistory      `gorm:"column:capture_history;type:jsonb;serializer:json;not null"`
	DeliveryHistory          types.StateHistory      `gorm:"column:delivery_history;type:jsonb;serializer:json;not null"`
	VerificationCode         string                  `gorm:"column:verification_code;not null"`
	Logistics                types.LogisticsSnapshot `gorm:"column:logistics;type:jsonb;serializer:json;not null"`
	CancellationReason       *string                 `gorm:"column:cancellation_reason"`
	CreatedAt                time.Time               `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt                time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
