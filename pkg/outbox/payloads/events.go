package payloads

import "time"

// OrderCreatedEvent is emitted once a confirmed authorization materializes into an order.
type OrderCreatedEvent struct {
	OrderID                string `json:"order_id"`
	OrderNumber            string `json:"order_number"`
	ClientID               string `json:"client_id"`
	StorefrontID           string `json:"storefront_id"`
	PaymentAuthorizationID string `json:"payment_authorization_id"`
	TotalPriceCents        int64  `json:"total_price_cents"`
	DeliveryFeeCents       int64  `json:"delivery_fee_cents"`
	Currency               string `json:"currency"`
}

// OrderStateChangedEvent reports one accepted transition on either state machine.
type OrderStateChangedEvent struct {
	OrderID string `json:"order_id"`
	Machine string `json:"machine"`
	From    string `json:"from"`
	To      string `json:"to"`
	Source  string `json:"source"`
	Reason  string `json:"reason,omitempty"`
}

type CourierAssignedEvent struct {
	OrderID      string `json:"order_id"`
	StorefrontID string `json:"storefront_id"`
	CourierID    string `json:"courier_id"`
}

type OrderDeliveredEvent struct {
	OrderID     string    `json:"order_id"`
	CourierID   string    `json:"courier_id,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderCanceledEvent carries the reason recorded on the order (vendor refusal, payment failure, no courier).
type OrderCanceledEvent struct {
	OrderID      string    `json:"order_id"`
	ClientID     string    `json:"client_id"`
	StorefrontID string    `json:"storefront_id"`
	Reason       string    `json:"reason"`
	CanceledAt   time.Time `json:"canceled_at"`
}

type PaymentCapturedEvent struct {
	OrderID                string `json:"order_id"`
	PaymentAuthorizationID string `json:"payment_authorization_id"`
	AmountCents            int64  `json:"amount_cents"`
	VendorTransferID       string `json:"vendor_transfer_id,omitempty"`
	CourierTransferID      string `json:"courier_transfer_id,omitempty"`
}

// AuthorizationEvent covers shadow authorizations released or left orphaned at the provider.
type AuthorizationEvent struct {
	AuthorizationID   string `json:"authorization_id"`
	CheckoutSessionID string `json:"checkout_session_id"`
	StorefrontID      string `json:"storefront_id"`
	AmountCents       int64  `json:"amount_cents"`
	Reason            string `json:"reason,omitempty"`
}
