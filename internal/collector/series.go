package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

// SeriesKey returns the snapshot key of an account's follower series.
func SeriesKey(handle string) string { return "timeseries/" + handle }

// mergeSeries folds new observations into the account's stored follower
// series, deduplicating by timestamp and keeping the series capped.
func mergeSeries(ctx context.Context, repo store.Repository, handle string, obs ...timeseries.Observation) (bool, error) {
	key := SeriesKey(handle)

	var existing []timeseries.Observation
	if err := repo.Get(ctx, key, &existing); err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("read series %s: %w", key, err)
	}

	merged := timeseries.Merge(existing, obs...)
	changed, err := repo.Put(ctx, key, merged)
	if err != nil {
		return false, fmt.Errorf("write series %s: %w", key, err)
	}
	return changed, nil
}
