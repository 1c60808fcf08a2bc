package enums

import (
	"fmt"
	"slices"
)

// AuthorizationStatus is the lifecycle of the local shadow row kept for each
// provider payment authorization.
type AuthorizationStatus string

const (
	AuthorizationOpen      AuthorizationStatus = "open"
	AuthorizationConfirmed AuthorizationStatus = "confirmed"
	AuthorizationCanceled  AuthorizationStatus = "canceled"
	// AuthorizationOrphaned marks a hold whose compensating cancel failed.
	AuthorizationOrphaned AuthorizationStatus = "orphaned"
)

var validAuthorizationStatuses = []AuthorizationStatus{
	AuthorizationOpen,
	AuthorizationConfirmed,
	AuthorizationCanceled,
	AuthorizationOrphaned,
}

func (a AuthorizationStatus) IsValid() bool {
	return slices.Contains(validAuthorizationStatuses, a)
}

func ParseAuthorizationStatus(value string) (AuthorizationStatus, error) {
	a := AuthorizationStatus(value)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid authorization status %q", value)
	}
	return a, nil
}
