package logistics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Slot tags the moment a checkout happens for surcharge purposes.
type Slot string

const (
	SlotNight   Slot = "night"
	SlotPeak    Slot = "peak"
	SlotWeekend Slot = "weekend"
)

var slotSurcharges = map[Slot]decimal.Decimal{
	SlotPeak:    decimal.NewFromInt(1),
	SlotNight:   decimal.NewFromInt(2),
	SlotWeekend: decimal.NewFromInt(1),
}

// SlotSet is a sorted, duplicate-free set of slots.
type SlotSet []Slot

// TimeSlotsAt tags t in the marketplace time zone. Peak covers 18:00 to 20:59,
// night covers 22:00 to 05:59.
func TimeSlotsAt(t time.Time, loc *time.Location) SlotSet {
	if loc != nil {
		t = t.In(loc)
	}
	var set SlotSet
	hour := t.Hour()
	if hour >= 18 && hour <= 20 {
		set = append(set, SlotPeak)
	}
	if hour >= 22 || hour < 6 {
		set = append(set, SlotNight)
	}
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		set = append(set, SlotWeekend)
	}
	return set.normalize()
}

// ParseSlotSet accepts the comma separated form produced by String.
func ParseSlotSet(raw string) (SlotSet, error) {
	var set SlotSet
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		slot := Slot(part)
		if _, ok := slotSurcharges[slot]; !ok {
			return nil, fmt.Errorf("unknown time slot %q", part)
		}
		set = append(set, slot)
	}
	return set.normalize(), nil
}

func (s SlotSet) normalize() SlotSet {
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}

// Surcharge folds the set into the euro amount added to the delivery fee.
func (s SlotSet) Surcharge() decimal.Decimal {
	total := decimal.Zero
	for _, slot := range s.normalize() {
		total = total.Add(slotSurcharges[slot])
	}
	return total
}

func (s SlotSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, slot := range s {
		out = append(out, string(slot))
	}
	return out
}

func (s SlotSet) String() string {
	return strings.Join(s.Strings(), ",")
}
