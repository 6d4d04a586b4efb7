package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord is one row of the alert ledger. GoalHappened stays nil until
// the outcome verifier resolves the record; rows are never deleted by the
// monitoring loop.
type AlertRecord struct {
	ID           int64
	FixtureID    int64
	Minute       int
	PressTotal   decimal.Decimal
	PressDiff    decimal.Decimal
	Corners      int
	ShotsOnGoal  int
	GoalsAtAlert int
	GoalHappened *bool
	CreatedAt    time.Time
}

// Resolved reports whether the outcome verifier has settled this record.
func (r AlertRecord) Resolved() bool {
	return r.GoalHappened != nil
}

// PressureSample is one persisted match evaluation. Samples back the corner
// windowing baseline and the export command; they carry no control-loop state.
type PressureSample struct {
	FixtureID  int64
	Minute     int
	PressHome  decimal.Decimal
	PressAway  decimal.Decimal
	PressTotal decimal.Decimal
	PressDiff  decimal.Decimal
	Corners    int
	CreatedAt  time.Time
}
