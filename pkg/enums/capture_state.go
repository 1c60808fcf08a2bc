package enums

import (
	"fmt"
	"slices"
)

// CaptureState tracks the payment hold backing an order. Maps to capture_state in Postgres.
type CaptureState string

const (
	CaptureAuthorized CaptureState = "authorized"
	CaptureCaptured   CaptureState = "captured"
	CaptureCanceled   CaptureState = "canceled"
	CaptureFailed     CaptureState = "failed"
)

var validCaptureStates = []CaptureState{CaptureAuthorized, CaptureCaptured, CaptureCanceled, CaptureFailed}

func (c CaptureState) String() string {
	return string(c)
}

func (c CaptureState) IsValid() bool {
	return slices.Contains(validCaptureStates, c)
}

// IsTerminal reports whether no further capture transition is possible.
func (c CaptureState) IsTerminal() bool {
	return c == CaptureCaptured || c == CaptureCanceled || c == CaptureFailed
}

func ParseCaptureState(value string) (CaptureState, error) {
	c := CaptureState(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid capture state %q", value)
	}
	return c, nil
}
