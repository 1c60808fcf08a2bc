package logistics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

func TestDistanceKm(t *testing.T) {
	paris := types.GeographyPoint{Lat: 48.8566, Lng: 2.3522}
	lyon := types.GeographyPoint{Lat: 45.7640, Lng: 4.8357}

	if d := DistanceKm(paris, paris); d != 0 {
		t.Fatalf("expected 0 for identical points, got %v", d)
	}
	d1 := DistanceKm(paris, lyon)
	d2 := DistanceKm(lyon, paris)
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance should be symmetric: %v vs %v", d1, d2)
	}
	if d1 < 390 || d1 > 395 {
		t.Fatalf("unexpected paris-lyon distance %v", d1)
	}
}

func TestBillableWeightProperties(t *testing.T) {
	for _, w := range []float64{0, 0.5, 1, 2.5, 10, 40} {
		for _, v := range []float64{0, 0.001, 0.004, 0.01, 0.2} {
			got := BillableWeight(w, v)
			if got < w {
				t.Fatalf("BillableWeight(%v,%v)=%v below actual weight", w, v, got)
			}
			if v*250 <= w && got != w {
				t.Fatalf("BillableWeight(%v,%v)=%v, expected actual weight", w, v, got)
			}
		}
	}
	if got := BillableWeight(1, 0.5); got != 125 {
		t.Fatalf("expected volumetric weight 125, got %v", got)
	}
}

func TestRecommendVehicle(t *testing.T) {
	cases := []struct {
		weight, distance float64
		want             enums.Vehicle
	}{
		{1.5, 3, enums.VehicleBike},
		{8, 10, enums.VehicleScooter},
		{25, 50, enums.VehicleCar},
		{40, 1, enums.VehicleVan},
		{40, 500, enums.VehicleVan},
		{1, 6, enums.VehicleScooter},
		{2, 5, enums.VehicleBike},
		{5, 20, enums.VehicleCar},
	}
	for _, tc := range cases {
		if got := RecommendVehicle(tc.weight, tc.distance); got != tc.want {
			t.Fatalf("RecommendVehicle(%v, %v) = %s, want %s", tc.weight, tc.distance, got, tc.want)
		}
	}
}

func TestDeliveryFeeFloor(t *testing.T) {
	vehicles := []enums.Vehicle{enums.VehicleBike, enums.VehicleScooter, enums.VehicleCar, enums.VehicleVan}
	slotSets := []SlotSet{nil, {SlotPeak}, {SlotNight, SlotWeekend}}
	floor := decimal.RequireFromString("4.5")
	for _, w := range []float64{0, 0.1, 3, 50} {
		for _, d := range []float64{0, 0.2, 7, 120} {
			for _, v := range vehicles {
				for _, s := range slotSets {
					if fee := DeliveryFee(w, d, s, v); fee.LessThan(floor) {
						t.Fatalf("fee %s below floor for w=%v d=%v v=%s s=%v", fee, w, d, v, s)
					}
				}
			}
		}
	}
}

func TestDeliveryFeeFormula(t *testing.T) {
	// 2 + 4*0.25 + 10*0.5 + peak 1 + weekend 1 + car 1
	fee := DeliveryFee(4, 10, SlotSet{SlotWeekend, SlotPeak}, enums.VehicleCar)
	if !fee.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("expected 11, got %s", fee)
	}
	if fee := DeliveryFee(0, 0, nil, enums.VehicleBike); !fee.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("expected floor fee, got %s", fee)
	}
}

func TestEstimatedDelayMinutes(t *testing.T) {
	if got := EstimatedDelayMinutes(3, enums.VehicleBike); got != 27 {
		t.Fatalf("bike 3km: expected 27, got %d", got)
	}
	if got := EstimatedDelayMinutes(10, enums.VehicleCar); got != 30 {
		t.Fatalf("car 10km: expected 30, got %d", got)
	}
	if got := EstimatedDelayMinutes(0, enums.VehicleVan); got != 15 {
		t.Fatalf("zero distance: expected 15, got %d", got)
	}
}

func TestFormatDelay(t *testing.T) {
	cases := map[int]string{
		45:   "45 min",
		90:   "1h 30min",
		120:  "2h",
		1500: "1j 1h",
		1440: "1j",
		59:   "59 min",
	}
	for minutes, want := range cases {
		if got := FormatDelay(minutes); got != want {
			t.Fatalf("FormatDelay(%d) = %q, want %q", minutes, got, want)
		}
	}
}

func TestTimeSlotsAt(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 3, 4, 12, 0, 0, 0, loc), ""},
		{time.Date(2026, 3, 4, 19, 30, 0, 0, loc), "peak"},
		{time.Date(2026, 3, 4, 23, 0, 0, 0, loc), "night"},
		{time.Date(2026, 3, 4, 5, 59, 0, 0, loc), "night"},
		{time.Date(2026, 3, 7, 18, 0, 0, 0, loc), "peak,weekend"},
		{time.Date(2026, 3, 8, 2, 0, 0, 0, loc), "night,weekend"},
	}
	for _, tc := range cases {
		if got := TimeSlotsAt(tc.at, loc).String(); got != tc.want {
			t.Fatalf("TimeSlotsAt(%s) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestTimeSlotsUseMarketplaceZone(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 17:30 UTC is 18:30 in Paris during winter time.
	at := time.Date(2026, 1, 14, 17, 30, 0, 0, time.UTC)
	if got := TimeSlotsAt(at, paris).String(); got != "peak" {
		t.Fatalf("expected peak in Paris, got %q", got)
	}
}

func TestParseSlotSetRoundTrip(t *testing.T) {
	set, err := ParseSlotSet("weekend, peak,peak")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if set.String() != "peak,weekend" {
		t.Fatalf("unexpected set %q", set.String())
	}
	if !set.Surcharge().Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected surcharge %s", set.Surcharge())
	}
	if _, err := ParseSlotSet("brunch"); err == nil {
		t.Fatal("expected unknown slot to fail")
	}
	if empty, err := ParseSlotSet(""); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty set, got %v %v", empty, err)
	}
}

func TestParticipationBounds(t *testing.T) {
	values := []string{"0", "4.5", "7.25", "12", "80"}
	percents := []string{"0", "20", "50", "100"}
	for _, f := range values {
		for _, total := range values {
			for _, share := range percents {
				for _, capPct := range percents {
					fee := decimal.RequireFromString(f)
					productTotal := decimal.RequireFromString(total)
					s := decimal.RequireFromString(share)
					c := decimal.RequireFromString(capPct)
					p := Participation(fee, productTotal, s, c)
					if p.GreaterThan(fee) {
						t.Fatalf("participation %s above fee %s", p, fee)
					}
					if p.IsNegative() {
						t.Fatalf("negative participation %s", p)
					}
					if p.GreaterThan(productTotal.Mul(c).Div(decimal.NewFromInt(100))) {
						t.Fatalf("participation %s above cap for total %s cap %s", p, productTotal, c)
					}
				}
			}
		}
	}
}

func TestFeeSharingPolicyDefaults(t *testing.T) {
	policy := FeeSharingPolicy{Enabled: true}
	// 50% of 8 = 4, 20% of 30 = 6
	participation, final := policy.Apply(decimal.NewFromInt(8), decimal.NewFromInt(30))
	if !participation.Equal(decimal.NewFromInt(4)) || !final.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("unexpected split %s / %s", participation, final)
	}
	// 20% of 10 = 2 caps the share
	participation, final = policy.Apply(decimal.NewFromInt(8), decimal.NewFromInt(10))
	if !participation.Equal(decimal.NewFromInt(2)) || !final.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("unexpected capped split %s / %s", participation, final)
	}

	disabled := FeeSharingPolicy{}
	participation, final = disabled.Apply(decimal.NewFromInt(8), decimal.NewFromInt(30))
	if !participation.IsZero() || !final.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("disabled policy should not participate: %s / %s", participation, final)
	}

	custom := FeeSharingPolicy{
		Enabled:      true,
		SharePercent: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		CapPercent:   decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}
	participation, final = custom.Apply(decimal.NewFromInt(8), decimal.NewFromInt(30))
	if !participation.Equal(decimal.NewFromInt(8)) || !final.IsZero() {
		t.Fatalf("unexpected full participation %s / %s", participation, final)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	in := Input{
		WeightKg:     2,
		VolumeM3:     0.002,
		Origin:       types.GeographyPoint{Lat: 48.8566, Lng: 2.3522},
		Destination:  types.GeographyPoint{Lat: 48.9, Lng: 2.4},
		Slots:        SlotSet{SlotWeekend, SlotPeak},
		ProductTotal: decimal.NewFromInt(40),
		Policy:       FeeSharingPolicy{Enabled: true},
	}
	first := Estimate(in)
	for i := 0; i < 5; i++ {
		again := Estimate(in)
		if !again.DeliveryFee.Equal(first.DeliveryFee) ||
			!again.FinalFee.Equal(first.FinalFee) ||
			again.DistanceKm != first.DistanceKm ||
			again.RecommendedVehicle != first.RecommendedVehicle ||
			again.EstimatedDelayMinutes != first.EstimatedDelayMinutes {
			t.Fatalf("estimate changed between runs: %+v vs %+v", first, again)
		}
	}
	if !first.FinalFee.Add(first.VendorParticipation).Equal(first.DeliveryFee) {
		t.Fatalf("final fee and participation should sum to fee: %+v", first)
	}
	if first.TimeSlots.String() != "peak,weekend" {
		t.Fatalf("slots should be normalized, got %q", first.TimeSlots.String())
	}
	snap := first.Snapshot()
	if snap.BaseFeeCents != Cents(first.DeliveryFee) || snap.Vehicle != string(first.RecommendedVehicle) {
		t.Fatalf("snapshot mismatch %+v", snap)
	}
}

func TestPlatformFeeCents(t *testing.T) {
	if got := PlatformFeeCents(2500, 800); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := PlatformFeeCents(1999, 800); got != 160 {
		t.Fatalf("expected 160 after rounding, got %d", got)
	}
	if got := Cents(decimal.RequireFromString("12.345")); got != 1235 {
		t.Fatalf("expected half-up rounding, got %d", got)
	}
	if !FromCents(1234).Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("unexpected FromCents")
	}
}
