package timeseries

import (
	"fmt"
	"sort"
	"time"
)

// MaxSeriesLength caps how many observations one account's series retains.
// Once exceeded, the oldest points are evicted first.
const MaxSeriesLength = 4000

// Observation is one follower-count sample for one account.
// The persisted form is {"t": ISO-8601 with the +09:00 offset, "followers": n}.
type Observation struct {
	T         time.Time `json:"t"`
	Followers int64     `json:"followers"`
}

// valid reports whether the observation may enter a series.
// Counts are non-negative integers; a zero timestamp marks a sample whose
// source field was missing or unparsable.
func (o Observation) valid() bool {
	return !o.T.IsZero() && o.Followers >= 0
}

// Merge folds incoming observations into an existing series and returns the
// canonical result: unique by timestamp (the later merge input wins), sorted
// ascending, capped at MaxSeriesLength with oldest-first eviction.
//
// Merge is idempotent and never mutates its inputs. Invalid observations are
// dropped; callers are expected to log them.
func Merge(existing []Observation, incoming ...Observation) []Observation {
	byInstant := make(map[int64]Observation, len(existing)+len(incoming))
	for _, o := range existing {
		if !o.valid() {
			continue
		}
		byInstant[o.T.UnixNano()] = o
	}
	for _, o := range incoming {
		if !o.valid() {
			continue
		}
		byInstant[o.T.UnixNano()] = o
	}

	merged := make([]Observation, 0, len(byInstant))
	for _, o := range byInstant {
		merged = append(merged, Observation{T: o.T.In(Zone), Followers: o.Followers})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].T.Before(merged[j].T) })

	if len(merged) > MaxSeriesLength {
		merged = merged[len(merged)-MaxSeriesLength:]
	}
	return merged
}

// Latest returns the most recent observation of a series, or false when the
// series is empty.
func Latest(series []Observation) (Observation, bool) {
	if len(series) == 0 {
		return Observation{}, false
	}
	return series[len(series)-1], true
}

// Granularity selects the bucketing scheme of a resampled window.
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// ParseGranularity accepts the canonical names plus the range-toggle aliases
// the dashboard sends ("1h", "1d", "1m" for the month-of-weeks view).
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "hour", "1h":
		return GranularityHour, nil
	case "day", "1d":
		return GranularityDay, nil
	case "week", "1m":
		return GranularityWeek, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}
