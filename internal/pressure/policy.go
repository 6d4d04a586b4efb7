package pressure

// ShotsMode selects which shots-on-goal figure the dominance condition
// compares against.
type ShotsMode string

const (
	ShotsMax  ShotsMode = "max"
	ShotsSum  ShotsMode = "sum"
	ShotsHome ShotsMode = "home"
	ShotsAway ShotsMode = "away"
)

// minDominanceShots is the fixed shots-on-goal floor for the dominance
// condition.
const minDominanceShots = 2

// PolicyInput carries the match context the metrics alone cannot provide.
type PolicyInput struct {
	ShotsMode ShotsMode
	// RecentCorners is the corner count for the recent period, computed by
	// the caller (windowed against a baseline sample where one exists,
	// cumulative otherwise).
	RecentCorners int
}

// Verdict reports the alert decision plus which conditions fired, for
// auditing and message rendering.
type Verdict struct {
	Alert         bool
	TotalPressure bool
	Dominance     bool
	CornerSurge   bool
}

// Decide evaluates the three alert conditions as a plain OR. Pure and total:
// any metrics produced by Score are acceptable input.
func Decide(m Metrics, t ThresholdSet, in PolicyInput) Verdict {
	var v Verdict

	v.TotalPressure = m.PressTotal.GreaterThanOrEqual(t.PressTotal)
	v.Dominance = m.PressDiff.GreaterThanOrEqual(t.PressDiff) && selectShots(m, in.ShotsMode) >= minDominanceShots
	v.CornerSurge = in.RecentCorners >= t.Corners10Min

	v.Alert = v.TotalPressure || v.Dominance || v.CornerSurge
	return v
}

func selectShots(m Metrics, mode ShotsMode) int {
	switch mode {
	case ShotsSum:
		return m.ShotsHome + m.ShotsAway
	case ShotsHome:
		return m.ShotsHome
	case ShotsAway:
		return m.ShotsAway
	default:
		if m.ShotsHome >= m.ShotsAway {
			return m.ShotsHome
		}
		return m.ShotsAway
	}
}
