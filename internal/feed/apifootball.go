package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pressure-alerts/internal/pressure"
)

const (
	fixturesPath   = "/fixtures"
	statisticsPath = "/fixtures/statistics"

	apiKeyHeader = "x-apisports-key"
)

// Options parameterise the API-Football client.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
	UserAgent         string
}

// Client fetches live fixtures and statistics from an API-Football style
// endpoint. Requests pass through a token-bucket limiter so a large live
// slate cannot burst past the upstream quota.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewClient constructs a feed client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://v3.football.api-sports.io"
	}

	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "match_feed").Logger(),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		baseURL: baseURL,
	}
}

// LiveMatches lists fixtures currently in play.
func (c *Client) LiveMatches(ctx context.Context) ([]Match, error) {
	params := url.Values{}
	params.Set("live", "all")

	var envelope fixturesResponse
	if err := c.get(ctx, fixturesPath, params, &envelope); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(envelope.Response))
	for _, entry := range envelope.Response {
		matches = append(matches, entry.toMatch())
	}
	return matches, nil
}

// Statistics retrieves the per-team statistics snapshot for a fixture.
func (c *Client) Statistics(ctx context.Context, fixtureID int64) (pressure.Snapshot, error) {
	params := url.Values{}
	params.Set("fixture", fmt.Sprintf("%d", fixtureID))

	var envelope statisticsResponse
	if err := c.get(ctx, statisticsPath, params, &envelope); err != nil {
		return nil, err
	}

	snapshot := make(pressure.Snapshot, 0, len(envelope.Response))
	for _, team := range envelope.Response {
		entry := pressure.TeamStatistics{
			TeamID:     team.Team.ID,
			TeamName:   team.Team.Name,
			Statistics: make([]pressure.Statistic, 0, len(team.Statistics)),
		}
		for _, stat := range team.Statistics {
			entry.Statistics = append(entry.Statistics, pressure.Statistic{
				Name:  stat.Type,
				Value: stat.Value,
			})
		}
		snapshot = append(snapshot, entry)
	}
	return snapshot, nil
}

// CurrentScore fetches the present scoreline of a single fixture.
func (c *Client) CurrentScore(ctx context.Context, fixtureID int64) (Score, error) {
	params := url.Values{}
	params.Set("id", fmt.Sprintf("%d", fixtureID))

	var envelope fixturesResponse
	if err := c.get(ctx, fixturesPath, params, &envelope); err != nil {
		return Score{}, err
	}
	if len(envelope.Response) == 0 {
		return Score{}, fmt.Errorf("fixture %d not found", fixtureID)
	}

	entry := envelope.Response[0]
	return Score{
		HomeGoals: intOrZero(entry.Goals.Home),
		AwayGoals: intOrZero(entry.Goals.Away),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.opts.APIKey == "" {
		return errors.New("feed api key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.opts.APIKey)
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("feed request %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read feed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed api error (%d): %s", resp.StatusCode, truncate(payload, 200))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode feed response: %w", err)
	}
	return nil
}

func truncate(b []byte, maxLen int) string {
	cleaned := strings.TrimSpace(string(b))
	if len(cleaned) <= maxLen {
		return cleaned
	}
	return cleaned[:maxLen] + "..."
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

type fixturesResponse struct {
	Response []fixtureEntry `json:"response"`
}

type fixtureEntry struct {
	Fixture struct {
		ID     int64 `json:"id"`
		Status struct {
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	Teams struct {
		Home struct {
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

func (e fixtureEntry) toMatch() Match {
	return Match{
		FixtureID: e.Fixture.ID,
		Home:      e.Teams.Home.Name,
		Away:      e.Teams.Away.Name,
		Minute:    intOrZero(e.Fixture.Status.Elapsed),
		Status:    e.Fixture.Status.Short,
		HomeGoals: intOrZero(e.Goals.Home),
		AwayGoals: intOrZero(e.Goals.Away),
	}
}

type statisticsResponse struct {
	Response []teamStatisticsEntry `json:"response"`
}

type teamStatisticsEntry struct {
	Team struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Statistics []struct {
		Type  string             `json:"type"`
		Value pressure.StatValue `json:"value"`
	} `json:"statistics"`
}

var _ MatchFeed = (*Client)(nil)
