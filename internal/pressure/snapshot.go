package pressure

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StatValue holds one raw statistic value as delivered by the feed. Providers
// ship these inconsistently: plain numbers, numeric strings, or null.
type StatValue struct {
	raw     string
	present bool
}

// IntValue builds a StatValue from an integer. Intended for tests and
// synthetic snapshots.
func IntValue(n int) StatValue {
	return StatValue{raw: strconv.Itoa(n), present: true}
}

// StringValue builds a StatValue from a raw string.
func StringValue(s string) StatValue {
	return StatValue{raw: strings.TrimSpace(s), present: true}
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (v *StatValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*v = StatValue{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StatValue{raw: strings.TrimSpace(s), present: true}
		return nil
	}
	*v = StatValue{raw: trimmed, present: true}
	return nil
}

// Int parses the value as a base-10 integer. Absent or non-numeric values
// count as zero rather than an error.
func (v StatValue) Int() int {
	if !v.present {
		return 0
	}
	n, err := strconv.Atoi(v.raw)
	if err != nil {
		return 0
	}
	return n
}

// Statistic is one named entry from a team's statistics block.
type Statistic struct {
	Name  string    `json:"type"`
	Value StatValue `json:"value"`
}

// TeamStatistics carries the full statistics block for one side.
type TeamStatistics struct {
	TeamID     int64       `json:"team_id"`
	TeamName   string      `json:"team_name"`
	Statistics []Statistic `json:"statistics"`
}

// Snapshot is the per-match statistics input: home side first, away second.
type Snapshot []TeamStatistics

func (t TeamStatistics) stat(name string) int {
	for _, s := range t.Statistics {
		if strings.EqualFold(s.Name, name) {
			return s.Value.Int()
		}
	}
	return 0
}
