package checkout

import (
	"github.com/angelmondragon/localdrop-backend/internal/logistics"
)

// Totals are the money amounts of one storefront group, in cents.
type Totals struct {
	ProductTotalCents        int64 `json:"product_total_cents"`
	DeliveryFeeCents         int64 `json:"delivery_fee_cents"`
	VendorParticipationCents int64 `json:"vendor_participation_cents"`
	TotalDeliveryChargeCents int64 `json:"total_delivery_charge_cents"`
	TotalPriceCents          int64 `json:"total_price_cents"`
	PlatformFeeCents         int64 `json:"platform_fee_cents"`
}

// ComputeTotals derives the charge from an estimate. DeliveryFeeCents is the fee the
// buyer pays; TotalDeliveryChargeCents adds back the vendor participation and is
// what the courier earns.
func ComputeTotals(productTotalCents int64, result logistics.Result, platformFeeBPS int64) Totals {
	finalFee := logistics.Cents(result.FinalFee)
	participation := logistics.Cents(result.VendorParticipation)
	return Totals{
		ProductTotalCents:        productTotalCents,
		DeliveryFeeCents:         finalFee,
		VendorParticipationCents: participation,
		TotalDeliveryChargeCents: finalFee + participation,
		TotalPriceCents:          productTotalCents + finalFee,
		PlatformFeeCents:         logistics.PlatformFeeCents(productTotalCents, platformFeeBPS),
	}
}

// VendorPayoutCents is what the storefront owner receives once the charge is captured.
func (t Totals) VendorPayoutCents() int64 {
	return t.ProductTotalCents - t.PlatformFeeCents - t.VendorParticipationCents
}

// CourierPayoutCents is what the assigned courier receives.
func (t Totals) CourierPayoutCents() int64 {
	return t.TotalDeliveryChargeCents
}
