package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func obs(t time.Time, v int64) Observation {
	return Observation{T: t, Followers: v}
}

func TestMerge_ReplacesDuplicateTimestamp(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, Zone)
	existing := []Observation{obs(ts, 100)}

	merged := Merge(existing, obs(ts, 105))

	require.Len(t, merged, 1)
	require.Equal(t, int64(105), merged[0].Followers)
	require.True(t, merged[0].T.Equal(ts))
}

func TestMerge_LaterInputWinsOnSharedTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, Zone)

	// Merge is deliberately not commutative for a shared timestamp: the
	// observation applied last wins.
	a := Merge(nil, obs(ts, 1), obs(ts, 2))
	b := Merge(nil, obs(ts, 2), obs(ts, 1))

	require.Equal(t, int64(2), a[0].Followers)
	require.Equal(t, int64(1), b[0].Followers)
}

func TestMerge_AppendsNewTimestamp(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, Zone)
	existing := Merge(nil, obs(base, 100))

	merged := Merge(existing, obs(base.Add(time.Hour), 110))

	require.Len(t, merged, len(existing)+1)
	require.Equal(t, int64(110), merged[1].Followers)
}

func TestMerge_Idempotent(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, Zone)
	existing := Merge(nil, obs(base, 100), obs(base.Add(time.Hour), 101))
	o := obs(base.Add(2*time.Hour), 102)

	once := Merge(existing, o)
	twice := Merge(once, o)

	require.Equal(t, once, twice)
}

func TestMerge_SortsAscending(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, Zone)

	merged := Merge(nil, obs(base.Add(2*time.Hour), 3), obs(base, 1), obs(base.Add(time.Hour), 2))

	require.Len(t, merged, 3)
	for i := 1; i < len(merged); i++ {
		require.True(t, merged[i-1].T.Before(merged[i].T))
	}
}

func TestMerge_EvictsOldestBeyondCap(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, Zone)
	existing := make([]Observation, 0, MaxSeriesLength)
	for i := 0; i < MaxSeriesLength; i++ {
		existing = append(existing, obs(base.Add(time.Duration(i)*time.Minute), int64(i)))
	}

	newest := obs(base.Add(time.Duration(MaxSeriesLength)*time.Minute), 9999)
	merged := Merge(existing, newest)

	require.Len(t, merged, MaxSeriesLength)
	// Single oldest point evicted, newest present at the tail.
	require.Equal(t, int64(1), merged[0].Followers)
	require.Equal(t, int64(9999), merged[len(merged)-1].Followers)
}

func TestMerge_DropsInvalidObservations(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, Zone)

	merged := Merge(nil,
		obs(ts, 100),
		Observation{T: time.Time{}, Followers: 50}, // missing timestamp
		obs(ts.Add(time.Hour), -1),                 // negative count
	)

	require.Len(t, merged, 1)
	require.Equal(t, int64(100), merged[0].Followers)
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	require.False(t, ok)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, Zone)
	series := Merge(nil, obs(base, 1), obs(base.Add(time.Hour), 2))
	last, ok := Latest(series)
	require.True(t, ok)
	require.Equal(t, int64(2), last.Followers)
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input     string
		want      Granularity
		wantError bool
	}{
		{input: "hour", want: GranularityHour},
		{input: "1h", want: GranularityHour},
		{input: "day", want: GranularityDay},
		{input: "1d", want: GranularityDay},
		{input: "week", want: GranularityWeek},
		{input: "1m", want: GranularityWeek},
		{input: "month", wantError: true},
		{input: "", wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			g, err := ParseGranularity(tc.input)
			if tc.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, g)
		})
	}
}
