package tuning

import (
	"github.com/shopspring/decimal"

	"pressure-alerts/internal/pressure"
)

// Threshold bounds. The adjuster may drift the bars inside these ranges but
// never outside them, whatever the accuracy input.
var (
	pressTotalMin = decimal.NewFromInt(50)
	pressTotalMax = decimal.NewFromInt(120)
	pressDiffMin  = decimal.NewFromInt(10)
	pressDiffMax  = decimal.NewFromInt(30)
)

const (
	corners10MinMin = 2
	corners10MinMax = 6

	// minAlertsToLoosen guards the loosening branch: too few alerts make the
	// accuracy figure meaningless.
	minAlertsToLoosen = 3
)

var (
	accuracyTighten = decimal.NewFromInt(85)
	accuracyLoosen  = decimal.NewFromInt(50)
	stepDown        = decimal.NewFromFloat(-0.05)
	stepUp          = decimal.NewFromFloat(0.05)
	hundred         = decimal.NewFromInt(100)
	one             = decimal.NewFromInt(1)
)

// Summary aggregates resolved alert outcomes over a trailing window.
type Summary struct {
	AlertsSent      int64
	GoalsConfirmed  int64
	DistinctMatches int64
}

// Recommendation is the full result of one adjustment computation. Both the
// current and recommended sets are always populated so callers can report the
// decision even when nothing changes.
type Recommendation struct {
	Current     pressure.ThresholdSet
	Recommended pressure.ThresholdSet
	Accuracy    decimal.Decimal
	Factor      decimal.Decimal
	Summary     Summary
}

// Changed reports whether the recommendation differs from the current set and
// should be persisted.
func (r Recommendation) Changed() bool {
	return !r.Factor.IsZero()
}

// Recommend applies the daily adjustment rule to the current threshold set.
//
// accuracy above 85% tightens the bars by 5% (fewer, higher-confidence
// alerts); accuracy below 50% with at least three alerts raises them by 5%
// (demand more pressure before alerting); anything else leaves the set
// untouched. Corners10Min is pinned — the clamp is a safeguard only.
func Recommend(current pressure.ThresholdSet, s Summary) Recommendation {
	accuracy := decimal.Zero
	if s.AlertsSent > 0 {
		accuracy = decimal.NewFromInt(s.GoalsConfirmed).Div(decimal.NewFromInt(s.AlertsSent)).Mul(hundred)
	}

	factor := decimal.Zero
	switch {
	case accuracy.GreaterThan(accuracyTighten):
		factor = stepDown
	case accuracy.LessThan(accuracyLoosen) && s.AlertsSent >= minAlertsToLoosen:
		factor = stepUp
	}

	rec := Recommendation{
		Current:  current,
		Accuracy: accuracy,
		Factor:   factor,
		Summary:  s,
	}

	scale := one.Add(factor)
	rec.Recommended = pressure.ThresholdSet{
		PressTotal:   clampDecimal(current.PressTotal.Mul(scale), pressTotalMin, pressTotalMax),
		PressDiff:    clampDecimal(current.PressDiff.Mul(scale), pressDiffMin, pressDiffMax),
		Corners10Min: clampInt(current.Corners10Min, corners10MinMin, corners10MinMax),
	}

	return rec
}

func clampDecimal(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
