package timeseries

import (
	"fmt"
	"time"
)

// Zone is the fixed civil calendar of the dashboard: UTC+9, no DST.
// All bucket boundaries are computed against this offset regardless of
// where a collector or the API server happens to run.
var Zone = time.FixedZone("UTC+9", 9*60*60)

// ParseDate parses a YYYY-MM-DD civil date and returns midnight of that
// day in the civil zone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid civil date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders t as a YYYY-MM-DD civil date.
func FormatDate(t time.Time) string {
	return t.In(Zone).Format("2006-01-02")
}

// StartOfDay returns midnight of t's civil day.
func StartOfDay(t time.Time) time.Time {
	c := t.In(Zone)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, Zone)
}

// WeekStart returns midnight of the Monday beginning t's civil week.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Mon=0 .. Sun=6
	return day.AddDate(0, 0, -offset)
}

// MonthSpan returns the inclusive first instant and exclusive end of the
// civil month containing t.
func MonthSpan(t time.Time) (start, end time.Time) {
	c := t.In(Zone)
	start = time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, Zone)
	end = start.AddDate(0, 1, 0)
	return start, end
}
