package timeseries

import (
	"sort"
	"time"
)

// Bucket is one point of a resampled window: the bucket's start instant and
// the last observed value inside it.
type Bucket struct {
	Start time.Time `json:"t"`
	Value int64     `json:"v"`
}

// Window is a derived, read-only projection of a series for one
// (granularity, reference date) pair. Buckets with no observation are simply
// absent; the window is never padded with zeros.
type Window []Bucket

// Resample buckets a series at the requested granularity around a reference
// date. Within every bucket the last (latest-timestamp) observation wins:
// follower counts are level snapshots, not event counts, so values are never
// summed here.
//
//   - hour: the 24 civil hours of date
//   - day:  date ±3 civil days (7 buckets); if that collapses to ≤1 populated
//     bucket, the raw points of the same span are returned instead so sub-day
//     movement still renders as a line
//   - week: Monday-keyed weeks of the civil month containing date
//
// An empty series yields an empty window.
func Resample(series []Observation, g Granularity, date time.Time) Window {
	switch g {
	case GranularityHour:
		return resampleHourly(series, date)
	case GranularityDay:
		return resampleDaily(series, date)
	case GranularityWeek:
		return resampleWeekly(series, date)
	}
	return nil
}

func resampleHourly(series []Observation, date time.Time) Window {
	from := StartOfDay(date)
	to := from.Add(24 * time.Hour)

	last := make(map[int]int64, 24)
	for _, o := range series {
		if o.T.Before(from) || !o.T.Before(to) {
			continue
		}
		hour := int(o.T.Sub(from) / time.Hour)
		last[hour] = o.Followers
	}

	w := make(Window, 0, len(last))
	for hour, v := range last {
		w = append(w, Bucket{Start: from.Add(time.Duration(hour) * time.Hour), Value: v})
	}
	return w.sorted()
}

func resampleDaily(series []Observation, date time.Time) Window {
	center := StartOfDay(date)
	from := center.AddDate(0, 0, -3)
	to := center.AddDate(0, 0, 4) // exclusive end of date+3

	last := make(map[time.Time]int64, 7)
	var raw Window
	for _, o := range series {
		if o.T.Before(from) || !o.T.Before(to) {
			continue
		}
		last[StartOfDay(o.T)] = o.Followers
		raw = append(raw, Bucket{Start: o.T, Value: o.Followers})
	}

	// All in-span samples on a single day: daily buckets would collapse to
	// one dot even though the span holds a drawable sequence. Hand back the
	// raw points for the same span instead.
	if len(last) <= 1 {
		return raw.sorted()
	}

	w := make(Window, 0, len(last))
	for day, v := range last {
		w = append(w, Bucket{Start: day, Value: v})
	}
	return w.sorted()
}

func resampleWeekly(series []Observation, date time.Time) Window {
	from, to := MonthSpan(date)

	last := make(map[time.Time]int64)
	for _, o := range series {
		if o.T.Before(from) || !o.T.Before(to) {
			continue
		}
		last[WeekStart(o.T)] = o.Followers
	}

	w := make(Window, 0, len(last))
	for week, v := range last {
		w = append(w, Bucket{Start: week, Value: v})
	}
	return w.sorted()
}

func (w Window) sorted() Window {
	sort.Slice(w, func(i, j int) bool { return w[i].Start.Before(w[j].Start) })
	return w
}
