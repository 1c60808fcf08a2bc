package logistics

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

// Input is everything a single storefront estimate depends on.
type Input struct {
	WeightKg     float64
	VolumeM3     float64
	Origin       types.GeographyPoint
	Destination  types.GeographyPoint
	Slots        SlotSet
	ProductTotal decimal.Decimal
	Policy       FeeSharingPolicy
}

// Result is the priced logistics outcome for one storefront group. Amounts are euros.
type Result struct {
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	VendorParticipation   decimal.Decimal `json:"vendor_participation"`
	FinalFee              decimal.Decimal `json:"final_fee"`
	WeightKg              float64         `json:"weight_kg"`
	VolumeM3              float64         `json:"volume_m3"`
	BillableWeightKg      float64         `json:"billable_weight_kg"`
	DistanceKm            float64         `json:"distance_km"`
	RecommendedVehicle    enums.Vehicle   `json:"recommended_vehicle"`
	EstimatedDelayMinutes int             `json:"estimated_delay_minutes"`
	EstimatedDelay        string          `json:"estimated_delay"`
	TimeSlots             SlotSet         `json:"time_slots"`
}

// Estimate has no side effects: identical inputs always produce identical results.
func Estimate(in Input) Result {
	billable := BillableWeight(in.WeightKg, in.VolumeM3)
	distance := DistanceKm(in.Origin, in.Destination)
	vehicle := RecommendVehicle(billable, distance)
	slots := in.Slots.normalize()

	fee := DeliveryFee(billable, distance, slots, vehicle)
	participation, finalFee := in.Policy.Apply(fee, in.ProductTotal)
	delay := EstimatedDelayMinutes(distance, vehicle)

	return Result{
		DeliveryFee:           fee,
		VendorParticipation:   participation,
		FinalFee:              finalFee,
		WeightKg:              in.WeightKg,
		VolumeM3:              in.VolumeM3,
		BillableWeightKg:      billable,
		DistanceKm:            distance,
		RecommendedVehicle:    vehicle,
		EstimatedDelayMinutes: delay,
		EstimatedDelay:        FormatDelay(delay),
		TimeSlots:             slots,
	}
}

// Snapshot freezes the result for storage on an order.
func (r Result) Snapshot() types.LogisticsSnapshot {
	return types.LogisticsSnapshot{
		WeightKg:         r.WeightKg,
		VolumeM3:         r.VolumeM3,
		BillableWeightKg: r.BillableWeightKg,
		DistanceKm:       r.DistanceKm,
		Vehicle:          string(r.RecommendedVehicle),
		DelayMinutes:     r.EstimatedDelayMinutes,
		DelayLabel:       r.EstimatedDelay,
		TimeSlots:        r.TimeSlots.Strings(),
		BaseFeeCents:     Cents(r.DeliveryFee),
	}
}
