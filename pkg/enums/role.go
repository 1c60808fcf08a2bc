package enums

import (
	"fmt"
	"slices"
)

// Role is the principal role carried by access tokens and profiles.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleVendor  Role = "vendor"
	RoleCourier Role = "courier"
	RoleAdmin   Role = "admin"
)

var validRoles = []Role{RoleBuyer, RoleVendor, RoleCourier, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	r := Role(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role %q", value)
	}
	return r, nil
}
