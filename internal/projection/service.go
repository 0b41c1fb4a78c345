// Package projection is the read side: it resolves stored follower series
// into the windows, summary cards, rankings and roll-up series the dashboard
// consumes. It never mutates snapshots.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/collector"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/aggregate"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/delta"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/rollup"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/observability"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownAccount marks requests for handles outside the account list.
	ErrUnknownAccount = errors.New("unknown account")
)

// seriesReadConcurrency bounds the fan-out when loading every account's
// series for an aggregate view.
const seriesReadConcurrency = 8

// Service implements the projection/query layer over the snapshot store.
type Service struct {
	repo    store.Repository
	handles []string
	metrics *observability.Metrics
	nowFn   func() time.Time
}

// NewService creates a projection service for the given account list.
// metrics may be nil in tests.
func NewService(repo store.Repository, accounts []account.Record, metrics *observability.Metrics) *Service {
	handles := make([]string, 0, len(accounts))
	for _, a := range accounts {
		handles = append(handles, a.Handle)
	}
	return &Service{
		repo:    repo,
		handles: handles,
		metrics: metrics,
		nowFn:   time.Now,
	}
}

// Accounts returns the tracked handles in configuration order.
func (s *Service) Accounts() []string {
	out := make([]string, len(s.handles))
	copy(out, s.handles)
	return out
}

// Window resolves one resampled window. handle may be a tracked account or
// the ALL pseudo-account, which sums aligned buckets across every account.
func (s *Service) Window(ctx context.Context, handle, granularity, date string) (*WindowResponse, error) {
	defer s.observe("window")()

	g, day, err := s.parseQuery(granularity, date)
	if err != nil {
		return nil, err
	}

	var buckets timeseries.Window
	if handle == rollup.AllStores {
		lookup, err := s.seriesLookup(ctx, s.handles)
		if err != nil {
			return nil, err
		}
		buckets = aggregate.Window(s.handles, lookup, g, day)
	} else {
		if !s.known(handle) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, handle)
		}
		series, err := s.loadSeries(ctx, handle)
		if err != nil {
			return nil, err
		}
		buckets = timeseries.Resample(series, g, day)
	}

	return &WindowResponse{
		Handle:      handle,
		Granularity: string(g),
		Date:        timeseries.FormatDate(day),
		Buckets:     buckets,
	}, nil
}

// Summary builds one card per account plus the combined total card. The total
// card's current value is the sum of latest observations regardless of age;
// its delta comes from the aggregated window.
func (s *Service) Summary(ctx context.Context, granularity, date string) (*SummaryResponse, error) {
	defer s.observe("summary")()

	g, day, err := s.parseQuery(granularity, date)
	if err != nil {
		return nil, err
	}
	lookup, err := s.seriesLookup(ctx, s.handles)
	if err != nil {
		return nil, err
	}
	now := s.nowFn().In(timeseries.Zone)

	rows := make([]SummaryRow, 0, len(s.handles))
	for _, handle := range s.handles {
		series := lookup(handle)
		row := SummaryRow{Handle: handle}
		if last, ok := timeseries.Latest(series); ok {
			row.Current = last.Followers
			row.ObservedAt = last.T
		}
		w := timeseries.Resample(series, g, day)
		if d, ok := delta.DeltaWithFallback(w, series, g, now); ok {
			row.Delta = &d
		}
		if rate, ok := delta.GrowthRate(w); ok {
			row.GrowthRate = &rate
		}
		rows = append(rows, row)
	}

	resp := &SummaryResponse{
		Granularity: string(g),
		Date:        timeseries.FormatDate(day),
		Accounts:    rows,
	}
	if total, latest, ok := aggregate.CurrentTotal(s.handles, lookup); ok {
		totalRow := SummaryRow{Handle: rollup.AllStores, Current: total, ObservedAt: latest}
		w := aggregate.Window(s.handles, lookup, g, day)
		if d, ok := delta.Delta(w); ok {
			totalRow.Delta = &d
		}
		if rate, ok := delta.GrowthRate(w); ok {
			totalRow.GrowthRate = &rate
		}
		resp.Total = &totalRow
	}
	return resp, nil
}

// Rankings returns the top and bottom movers for one window.
func (s *Service) Rankings(ctx context.Context, granularity, date string, size int) (*RankingResponse, error) {
	defer s.observe("rankings")()

	g, day, err := s.parseQuery(granularity, date)
	if err != nil {
		return nil, err
	}
	lookup, err := s.seriesLookup(ctx, s.handles)
	if err != nil {
		return nil, err
	}

	ranking := delta.Rank(s.handles, lookup, g, day, s.nowFn().In(timeseries.Zone), size)
	return &RankingResponse{
		Granularity: string(g),
		Date:        timeseries.FormatDate(day),
		Top:         toEntries(ranking.Top),
		Bottom:      toEntries(ranking.Bottom),
	}, nil
}

// Rollup reads the stored roll-up document for a store or ALL.
func (s *Service) Rollup(ctx context.Context, storeName string) (*rollup.Document, error) {
	defer s.observe("rollup")()

	if storeName != rollup.AllStores && !s.known(storeName) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, storeName)
	}
	var doc rollup.Document
	if err := s.repo.Get(ctx, rollup.Key(storeName), &doc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read roll-up for %s: %w", storeName, err)
	}
	return &doc, nil
}

func (s *Service) parseQuery(granularity, date string) (timeseries.Granularity, time.Time, error) {
	if granularity == "" {
		granularity = string(timeseries.GranularityDay)
	}
	g, err := timeseries.ParseGranularity(granularity)
	if err != nil {
		return g, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	day := timeseries.StartOfDay(s.nowFn().In(timeseries.Zone))
	if date != "" {
		day, err = timeseries.ParseDate(date)
		if err != nil {
			return g, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}
	return g, day, nil
}

func (s *Service) known(handle string) bool {
	for _, h := range s.handles {
		if h == handle {
			return true
		}
	}
	return false
}

func (s *Service) loadSeries(ctx context.Context, handle string) ([]timeseries.Observation, error) {
	var series []timeseries.Observation
	err := s.repo.Get(ctx, collector.SeriesKey(handle), &series)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.SnapshotReadErrors.Inc()
		}
		return nil, fmt.Errorf("read series for %s: %w", handle, err)
	}
	return series, nil
}

// seriesLookup loads every requested series concurrently and returns an
// in-memory lookup for the pure aggregation functions.
func (s *Service) seriesLookup(ctx context.Context, handles []string) (aggregate.SeriesLookup, error) {
	var mu sync.Mutex
	byHandle := make(map[string][]timeseries.Observation, len(handles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seriesReadConcurrency)
	for _, handle := range handles {
		g.Go(func() error {
			series, err := s.loadSeries(ctx, handle)
			if err != nil {
				return err
			}
			mu.Lock()
			byHandle[handle] = series
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return func(handle string) []timeseries.Observation { return byHandle[handle] }, nil
}

func (s *Service) observe(operation string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func toEntries(in []delta.Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = Entry{Handle: e.Handle, Delta: e.Delta}
	}
	return out
}
