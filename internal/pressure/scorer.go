package pressure

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	statTotalAttacks = "Total attacks"
	statShotsOnGoal  = "Shots on Goal"
	statCornerKicks  = "Corner Kicks"
)

// ErrInsufficientData marks a snapshot that cannot be scored. Callers are
// expected to skip the match for the current cycle rather than abort.
var ErrInsufficientData = errors.New("pressure: insufficient statistics data")

var (
	weightAttacks = decimal.NewFromFloat(0.5)
	weightShots   = decimal.NewFromFloat(1.5)
	weightCorners = decimal.NewFromFloat(0.8)
)

// Metrics is the deterministic output of one scoring call.
type Metrics struct {
	PressHome   decimal.Decimal
	PressAway   decimal.Decimal
	PressTotal  decimal.Decimal
	PressDiff   decimal.Decimal
	AttacksHome int
	AttacksAway int
	ShotsHome   int
	ShotsAway   int
	CornersHome int
	CornersAway int
}

// Score computes pressure metrics from a two-team snapshot. Missing or
// unparseable statistic values contribute zero; a snapshot with fewer than two
// team entries fails with ErrInsufficientData.
func Score(snapshot Snapshot) (Metrics, error) {
	if len(snapshot) < 2 {
		return Metrics{}, fmt.Errorf("%w: got %d team entries, need 2", ErrInsufficientData, len(snapshot))
	}

	home := snapshot[0]
	away := snapshot[1]

	m := Metrics{
		AttacksHome: home.stat(statTotalAttacks),
		AttacksAway: away.stat(statTotalAttacks),
		ShotsHome:   home.stat(statShotsOnGoal),
		ShotsAway:   away.stat(statShotsOnGoal),
		CornersHome: home.stat(statCornerKicks),
		CornersAway: away.stat(statCornerKicks),
	}

	m.PressHome = teamPressure(m.AttacksHome, m.ShotsHome, m.CornersHome)
	m.PressAway = teamPressure(m.AttacksAway, m.ShotsAway, m.CornersAway)
	m.PressTotal = m.PressHome.Add(m.PressAway)
	m.PressDiff = m.PressHome.Sub(m.PressAway).Abs()

	return m, nil
}

func teamPressure(attacks, shots, corners int) decimal.Decimal {
	return decimal.NewFromInt(int64(attacks)).Mul(weightAttacks).
		Add(decimal.NewFromInt(int64(shots)).Mul(weightShots)).
		Add(decimal.NewFromInt(int64(corners)).Mul(weightCorners))
}
