package types

import "time"

// StateHistoryEntry is one append-only record in an order's capture or delivery log.
type StateHistoryEntry struct {
	State  string    `json:"state"`
	At     time.Time `json:"at"`
	Source string    `json:"source"`
	Reason string    `json:"reason,omitempty"`
}

// StateHistory is stored as a jsonb array.
type StateHistory []StateHistoryEntry

// Last returns the most recent entry, if any.
func (h StateHistory) Last() (StateHistoryEntry, bool) {
	if len(h) == 0 {
		return StateHistoryEntry{}, false
	}
	return h[len(h)-1], true
}

// LogisticsSnapshot freezes the estimate an order was priced with.
type LogisticsSnapshot struct {
	WeightKg         float64  `json:"weight_kg"`
	VolumeM3         float64  `json:"volume_m3"`
	BillableWeightKg float64  `json:"billable_weight_kg"`
	DistanceKm       float64  `json:"distance_km"`
	Vehicle          string   `json:"vehicle"`
	DelayMinutes     int      `json:"delay_minutes"`
	DelayLabel       string   `json:"delay_label"`
	TimeSlots        []string `json:"time_slots"`
	BaseFeeCents     int64    `json:"base_fee_cents"`
}

// OrderLineItem is a display snapshot of one purchased product.
type OrderLineItem struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	WeightKg       float64 `json:"weight_kg"`
	VolumeM3       float64 `json:"volume_m3"`
	LogisticsClass string  `json:"logistics_class"`
}
