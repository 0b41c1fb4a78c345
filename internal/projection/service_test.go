package projection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/collector"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/rollup"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

var testAccounts = []account.Record{
	{Handle: "SHIBUYA", IGID: "1", Token: "t"},
	{Handle: "UMEDA", IGID: "2", Token: "t"},
	{Handle: "SAPPORO", IGID: "3", Token: "t"},
}

func at(day int, hour int) time.Time {
	return time.Date(2025, 1, day, hour, 0, 0, 0, timeseries.Zone)
}

func newTestService(t *testing.T) (*Service, store.Repository) {
	t.Helper()
	repo := store.NewMemoryRepository()
	ctx := context.Background()

	seed := map[string][]timeseries.Observation{
		"SHIBUYA": {
			{T: at(14, 9), Followers: 100},
			{T: at(15, 9), Followers: 110},
			{T: at(16, 9), Followers: 130},
		},
		"UMEDA": {
			{T: at(14, 10), Followers: 50},
			{T: at(16, 10), Followers: 45},
		},
		// SAPPORO has no series at all.
	}
	for handle, series := range seed {
		_, err := repo.Put(ctx, collector.SeriesKey(handle), series)
		require.NoError(t, err)
	}

	svc := NewService(repo, testAccounts, nil)
	svc.nowFn = func() time.Time { return at(16, 12) }
	return svc, repo
}

func TestWindow_SingleAccount(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Window(context.Background(), "SHIBUYA", "day", "2025-01-16")
	require.NoError(t, err)

	assert.Equal(t, "SHIBUYA", resp.Handle)
	assert.Equal(t, "day", resp.Granularity)
	assert.Equal(t, "2025-01-16", resp.Date)
	require.Len(t, resp.Buckets, 3)
	assert.Equal(t, int64(100), resp.Buckets[0].Value)
	assert.Equal(t, int64(130), resp.Buckets[2].Value)
}

func TestWindow_AllSumsAlignedBuckets(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Window(context.Background(), rollup.AllStores, "day", "2025-01-16")
	require.NoError(t, err)

	require.Len(t, resp.Buckets, 3)
	// Day 14: 100+50, day 15: SHIBUYA only, day 16: 130+45.
	assert.Equal(t, int64(150), resp.Buckets[0].Value)
	assert.Equal(t, int64(110), resp.Buckets[1].Value)
	assert.Equal(t, int64(175), resp.Buckets[2].Value)
}

func TestWindow_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Window(context.Background(), "NOBODY", "day", "2025-01-16")
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestWindow_InvalidQuery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Window(ctx, "SHIBUYA", "fortnight", "2025-01-16")
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Window(ctx, "SHIBUYA", "day", "not-a-date")
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestWindow_DefaultsToTodayAndDay(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Window(context.Background(), "SHIBUYA", "", "")
	require.NoError(t, err)
	assert.Equal(t, "day", resp.Granularity)
	assert.Equal(t, "2025-01-16", resp.Date)
}

func TestSummary_CardsAndTotal(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Summary(context.Background(), "day", "2025-01-16")
	require.NoError(t, err)

	require.Len(t, resp.Accounts, 3)

	shibuya := resp.Accounts[0]
	assert.Equal(t, "SHIBUYA", shibuya.Handle)
	assert.Equal(t, int64(130), shibuya.Current)
	require.NotNil(t, shibuya.Delta)
	assert.Equal(t, int64(30), *shibuya.Delta)
	require.NotNil(t, shibuya.GrowthRate)
	assert.Equal(t, "30", shibuya.GrowthRate.String())

	umeda := resp.Accounts[1]
	require.NotNil(t, umeda.Delta)
	assert.Equal(t, int64(-5), *umeda.Delta)

	// No data at all: blank card, not zeros pretending to be data.
	sapporo := resp.Accounts[2]
	assert.Equal(t, int64(0), sapporo.Current)
	assert.Nil(t, sapporo.Delta)
	assert.Nil(t, sapporo.GrowthRate)

	require.NotNil(t, resp.Total)
	assert.Equal(t, rollup.AllStores, resp.Total.Handle)
	assert.Equal(t, int64(175), resp.Total.Current)
	require.NotNil(t, resp.Total.Delta)
	assert.Equal(t, int64(25), *resp.Total.Delta)
}

func TestSummary_NoDataAtAll(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), testAccounts, nil)
	svc.nowFn = func() time.Time { return at(16, 12) }

	resp, err := svc.Summary(context.Background(), "day", "2025-01-16")
	require.NoError(t, err)
	assert.Nil(t, resp.Total)
}

func TestRankings_TopAndBottom(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Rankings(context.Background(), "day", "2025-01-16", 2)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Top)
	assert.Equal(t, Entry{Handle: "SHIBUYA", Delta: 30}, resp.Top[0])
	require.NotEmpty(t, resp.Bottom)
	assert.Equal(t, Entry{Handle: "UMEDA", Delta: -5}, resp.Bottom[0])
}

func TestRollup_ReadsStoredDocument(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	want := &rollup.Document{
		Store: "SHIBUYA", Version: "v1", Granularity: "daily",
		Items: []rollup.Row{{Date: "2025-01-15", PostsCount: 2}},
	}
	_, err := repo.Put(ctx, rollup.Key("SHIBUYA"), want)
	require.NoError(t, err)

	doc, err := svc.Rollup(ctx, "SHIBUYA")
	require.NoError(t, err)
	assert.Equal(t, want.Items, doc.Items)

	_, err = svc.Rollup(ctx, "UMEDA")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Rollup(ctx, "NOBODY")
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestAccounts_ConfigurationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, []string{"SHIBUYA", "UMEDA", "SAPPORO"}, svc.Accounts())
}
