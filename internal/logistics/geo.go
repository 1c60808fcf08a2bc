package logistics

import (
	"fmt"
	"math"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

const (
	earthRadiusKm = 6371.0
	// volumetric equivalence, kg per cubic metre
	volumetricDensity = 250.0
	handlingMinutes   = 15.0
)

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b types.GeographyPoint) float64 {
	if a == b {
		return 0
	}
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// BillableWeight returns the larger of the actual and volumetric weight.
func BillableWeight(weightKg, volumeM3 float64) float64 {
	return math.Max(weightKg, volumeM3*volumetricDensity)
}

type vehicleTier struct {
	vehicle     enums.Vehicle
	maxWeightKg float64
	maxDistance float64
}

// First matching tier wins.
var vehicleTiers = []vehicleTier{
	{vehicle: enums.VehicleBike, maxWeightKg: 2, maxDistance: 5},
	{vehicle: enums.VehicleScooter, maxWeightKg: 10, maxDistance: 15},
	{vehicle: enums.VehicleCar, maxWeightKg: 30, maxDistance: math.Inf(1)},
}

func RecommendVehicle(billableWeightKg, distanceKm float64) enums.Vehicle {
	for _, tier := range vehicleTiers {
		if billableWeightKg <= tier.maxWeightKg && distanceKm <= tier.maxDistance {
			return tier.vehicle
		}
	}
	return enums.VehicleVan
}

func speedKmh(v enums.Vehicle) float64 {
	switch v {
	case enums.VehicleBike:
		return 15
	case enums.VehicleCar:
		return 40
	default:
		return 30
	}
}

// EstimatedDelayMinutes is travel time at the vehicle's average speed plus a fixed handling buffer.
func EstimatedDelayMinutes(distanceKm float64, v enums.Vehicle) int {
	return int(math.Ceil(distanceKm/speedKmh(v)*60 + handlingMinutes))
}

// FormatDelay renders minutes as "45 min", "1h 30min" or "1j 1h".
func FormatDelay(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	case minutes < 24*60:
		h, m := minutes/60, minutes%60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dmin", h, m)
	default:
		d, h := minutes/(24*60), (minutes%(24*60))/60
		if h == 0 {
			return fmt.Sprintf("%dj", d)
		}
		return fmt.Sprintf("%dj %dh", d, h)
	}
}
