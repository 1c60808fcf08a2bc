package enums

import (
	"fmt"
	"slices"
)

// Vehicle is the courier vehicle class recommended for a delivery.
type Vehicle string

const (
	VehicleBike    Vehicle = "bike"
	VehicleScooter Vehicle = "scooter"
	VehicleCar     Vehicle = "car"
	VehicleVan     Vehicle = "van"
)

var validVehicles = []Vehicle{VehicleBike, VehicleScooter, VehicleCar, VehicleVan}

func (v Vehicle) String() string {
	return string(v)
}

func (v Vehicle) IsValid() bool {
	return slices.Contains(validVehicles, v)
}

func ParseVehicle(value string) (Vehicle, error) {
	v := Vehicle(value)
	if !v.IsValid() {
		return "", fmt.Errorf("invalid vehicle %q", value)
	}
	return v, nil
}
