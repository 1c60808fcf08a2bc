package enums

import (
	"fmt"
	"slices"
)

// LogisticsClass describes handling constraints of a product.
type LogisticsClass string

const (
	LogisticsStandard  LogisticsClass = "standard"
	LogisticsFragile   LogisticsClass = "fragile"
	LogisticsCold      LogisticsClass = "cold"
	LogisticsOversized LogisticsClass = "oversized"
)

var validLogisticsClasses = []LogisticsClass{LogisticsStandard, LogisticsFragile, LogisticsCold, LogisticsOversized}

func (l LogisticsClass) IsValid() bool {
	return slices.Contains(validLogisticsClasses, l)
}

func ParseLogisticsClass(value string) (LogisticsClass, error) {
	if value == "" {
		return LogisticsStandard, nil
	}
	l := LogisticsClass(value)
	if !l.IsValid() {
		return "", fmt.Errorf("invalid logistics class %q", value)
	}
	return l, nil
}
