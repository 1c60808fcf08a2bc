package logistics

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
)

var (
	minimumFee       = decimal.RequireFromString("4.5")
	baseFee          = decimal.NewFromInt(2)
	perKgRate        = decimal.RequireFromString("0.25")
	perKmRate        = decimal.RequireFromString("0.5")
	carSurcharge     = decimal.NewFromInt(1)
	vanSurcharge     = decimal.NewFromInt(2)
	hundred          = decimal.NewFromInt(100)
	basisPointsScale = decimal.NewFromInt(10000)
)

func VehicleSurcharge(v enums.Vehicle) decimal.Decimal {
	switch v {
	case enums.VehicleCar:
		return carSurcharge
	case enums.VehicleVan:
		return vanSurcharge
	default:
		return decimal.Zero
	}
}

// DeliveryFee prices a delivery in euros, rounded to the cent and never below the floor.
func DeliveryFee(billableWeightKg, distanceKm float64, slots SlotSet, v enums.Vehicle) decimal.Decimal {
	fee := baseFee.
		Add(decimal.NewFromFloat(billableWeightKg).Mul(perKgRate)).
		Add(decimal.NewFromFloat(distanceKm).Mul(perKmRate)).
		Add(slots.Surcharge()).
		Add(VehicleSurcharge(v)).
		Round(2)
	return decimal.Max(minimumFee, fee)
}

// Cents converts a euro amount to integer cents.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts integer cents to a euro amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// PlatformFeeCents applies the commission basis points to the product total.
func PlatformFeeCents(productTotalCents, bps int64) int64 {
	return decimal.NewFromInt(productTotalCents).
		Mul(decimal.NewFromInt(bps)).
		Div(basisPointsScale).
		Round(0).
		IntPart()
}
