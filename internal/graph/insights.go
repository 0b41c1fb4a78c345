package graph

import (
	"encoding/json"
	"strconv"
)

// InsightsResponse is the body of an /insights call. Depending on the
// requested metric_type a metric carries either a Values series or a single
// TotalValue; both appear in the wild for the same metric name across API
// versions, so readers must accept either.
type InsightsResponse struct {
	Data []InsightMetric `json:"data"`
}

type InsightMetric struct {
	Name       string          `json:"name"`
	Period     string          `json:"period"`
	Values     []InsightValue  `json:"values"`
	TotalValue *InsightTotal   `json:"total_value"`
	Title      json.RawMessage `json:"title"`
}

type InsightValue struct {
	Value   json.RawMessage `json:"value"`
	EndTime string          `json:"end_time"`
}

type InsightTotal struct {
	Value json.RawMessage `json:"value"`
}

// Reading returns the metric's single numeric reading, preferring TotalValue
// and falling back to the last entry of the Values series.
func (m InsightMetric) Reading() (int64, bool) {
	if m.TotalValue != nil {
		if n, ok := Number(m.TotalValue.Value); ok {
			return n, true
		}
	}
	if len(m.Values) > 0 {
		return Number(m.Values[len(m.Values)-1].Value)
	}
	return 0, false
}

// Number decodes a raw insight value that may arrive as a JSON number or a
// numeric string.
func Number(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// ListResponse is the envelope of media and story listing calls.
type ListResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging *Paging           `json:"paging"`
}

type Paging struct {
	Next    string `json:"next"`
	Cursors struct {
		After string `json:"after"`
	} `json:"cursors"`
}

// AccountFields is the subset of profile fields the followers probe reads.
type AccountFields struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	FollowersCount json.RawMessage `json:"followers_count"`
}

// Followers returns the follower count, coercing a numeric string when the
// API returns one and treating anything non-numeric as zero.
func (a AccountFields) Followers() int64 {
	if n, ok := Number(a.FollowersCount); ok {
		return n
	}
	return 0
}
