package feed

import (
	"context"

	"pressure-alerts/internal/pressure"
)

// Match is one live fixture handle returned by the feed.
type Match struct {
	FixtureID int64
	Home      string
	Away      string
	Minute    int
	Status    string
	HomeGoals int
	AwayGoals int
}

// Score is the current scoreline of a fixture.
type Score struct {
	HomeGoals int
	AwayGoals int
}

// Total returns the combined goal count.
func (s Score) Total() int {
	return s.HomeGoals + s.AwayGoals
}

// MatchFeed abstracts the football-data provider. All calls are transient:
// a failure affects the current item only and the next cycle retries.
type MatchFeed interface {
	LiveMatches(ctx context.Context) ([]Match, error)
	Statistics(ctx context.Context, fixtureID int64) (pressure.Snapshot, error)
	CurrentScore(ctx context.Context, fixtureID int64) (Score, error)
}
