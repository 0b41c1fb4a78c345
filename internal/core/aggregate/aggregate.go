// Package aggregate combines per-account resampled windows into the ALL view.
package aggregate

import (
	"sort"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
)

// SeriesLookup resolves one account's canonical series. A nil or empty result
// means the account has no data yet; that is not an error.
type SeriesLookup func(handle string) []timeseries.Observation

// Window resamples every account at (granularity, date) and sums values per
// aligned bucket. An account with no sample in a bucket contributes nothing
// to that bucket's sum; a bucket appears as long as at least one account has
// it. One onboarding-lagged or gappy account therefore never suppresses the
// aggregate.
func Window(accounts []string, lookup SeriesLookup, g timeseries.Granularity, date time.Time) timeseries.Window {
	sums := make(map[int64]int64)
	starts := make(map[int64]time.Time)

	for _, handle := range accounts {
		for _, b := range timeseries.Resample(lookup(handle), g, date) {
			k := b.Start.UnixNano()
			sums[k] += b.Value
			starts[k] = b.Start
		}
	}

	w := make(timeseries.Window, 0, len(sums))
	for k, v := range sums {
		w = append(w, timeseries.Bucket{Start: starts[k], Value: v})
	}
	sort.Slice(w, func(i, j int) bool { return w[i].Start.Before(w[j].Start) })
	return w
}

// CurrentTotal is the "current value" snapshot of the ALL card: the sum of
// each account's most recent observation regardless of how old it is, plus
// the latest of those timestamps. This is a deliberately different operation
// from Window and must not be derived from window buckets.
func CurrentTotal(accounts []string, lookup SeriesLookup) (total int64, latest time.Time, ok bool) {
	for _, handle := range accounts {
		last, has := timeseries.Latest(lookup(handle))
		if !has {
			continue
		}
		total += last.Followers
		if last.T.After(latest) {
			latest = last.T
		}
		ok = true
	}
	return total, latest, ok
}
