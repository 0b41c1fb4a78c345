// Package delta computes window deltas, growth rates and gain/loss rankings.
// Everything here is a pure function over supplied snapshots.
package delta

import (
	"sort"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/aggregate"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/shopspring/decimal"
)

// DefaultRankSize is how many gainers and losers a ranking carries.
const DefaultRankSize = 3

const hourFallbackLookback = 6 * time.Hour

// Delta returns lastBucketValue − firstBucketValue of a window. ok is false
// when the window has fewer than two buckets.
func Delta(w timeseries.Window) (d int64, ok bool) {
	if len(w) < 2 {
		return 0, false
	}
	return w[len(w)-1].Value - w[0].Value, true
}

// DeltaWithFallback is Delta plus the hour-granularity rescue path: when the
// hourly window is too thin, look back up to six hours from now across the
// raw series; with two or more points in that span the delta comes from them,
// and with at least one raw point anywhere the delta is reported as 0 so the
// freshest card still carries a labeled figure instead of a blank.
func DeltaWithFallback(w timeseries.Window, raw []timeseries.Observation, g timeseries.Granularity, now time.Time) (int64, bool) {
	if d, ok := Delta(w); ok {
		return d, true
	}
	if g != timeseries.GranularityHour {
		return 0, false
	}

	cut := now.Add(-hourFallbackLookback)
	var recent []timeseries.Observation
	for _, o := range raw {
		if o.T.After(now) || o.T.Before(cut) {
			continue
		}
		recent = append(recent, o)
	}
	if len(recent) >= 2 {
		return recent[len(recent)-1].Followers - recent[0].Followers, true
	}
	if len(raw) >= 1 {
		return 0, true
	}
	return 0, false
}

// GrowthRate returns the window's percentage change (last−first)/first×100.
// Undefined for thin windows and when the window opens at zero.
func GrowthRate(w timeseries.Window) (decimal.Decimal, bool) {
	if len(w) < 2 || w[0].Value == 0 {
		return decimal.Zero, false
	}
	first := decimal.NewFromInt(w[0].Value)
	last := decimal.NewFromInt(w[len(w)-1].Value)
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2), true
}

// Entry is one ranked account.
type Entry struct {
	Handle string `json:"handle"`
	Delta  int64  `json:"delta"`
}

// Ranking holds the top gainers and bottom losers for one window.
type Ranking struct {
	Top    []Entry `json:"top"`
	Bottom []Entry `json:"bottom"`
}

// Rank computes each account's windowed delta (with the hourly fallback) and
// returns the top n gainers and bottom n losers. Accounts whose delta is
// undefined are skipped. Ties keep the account-list order: the sort is stable
// and the input order is the tiebreak.
func Rank(accounts []string, lookup aggregate.SeriesLookup, g timeseries.Granularity, date, now time.Time, n int) Ranking {
	if n <= 0 {
		n = DefaultRankSize
	}

	entries := make([]Entry, 0, len(accounts))
	for _, handle := range accounts {
		series := lookup(handle)
		w := timeseries.Resample(series, g, date)
		d, ok := DeltaWithFallback(w, series, g, now)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Handle: handle, Delta: d})
	}

	top := make([]Entry, len(entries))
	copy(top, entries)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Delta > top[j].Delta })

	bottom := make([]Entry, len(entries))
	copy(bottom, entries)
	sort.SliceStable(bottom, func(i, j int) bool { return bottom[i].Delta < bottom[j].Delta })

	return Ranking{Top: head(top, n), Bottom: head(bottom, n)}
}

func head(entries []Entry, n int) []Entry {
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
