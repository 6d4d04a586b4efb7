package pressure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ThresholdSet is the singleton tunable state read by the alert policy and
// rewritten by the daily adjuster.
type ThresholdSet struct {
	PressTotal   decimal.Decimal
	PressDiff    decimal.Decimal
	Corners10Min int
	UpdatedAt    time.Time
}

// DefaultThresholds substitute for missing configuration: a fresh deployment
// alerts with these until the first adjustment run.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		PressTotal:   decimal.NewFromInt(70),
		PressDiff:    decimal.NewFromInt(15),
		Corners10Min: 3,
	}
}
