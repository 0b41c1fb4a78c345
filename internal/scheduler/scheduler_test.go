package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/collector"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/rollup"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

type countingJob struct {
	name string
	runs atomic.Int32
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Run(context.Context, account.Record) error {
	j.runs.Add(1)
	return nil
}

func TestStart_RunsInitialProbeAndStopsOnCancel(t *testing.T) {
	accounts := []account.Record{{Handle: "SHIBUYA", IGID: "1", Token: "t"}}
	runner := collector.NewRunner(accounts, 0, nil)
	repo := store.NewMemoryRepository()
	followers := &countingJob{name: "followers"}

	s := New(runner, followers, nil, nil, rollup.NewBuilder(repo),
		[]string{"SHIBUYA"}, Intervals{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Initial probe and roll-up rebuild run before any tick.
	require.Eventually(t, func() bool {
		return followers.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var doc rollup.Document
		return repo.Get(context.Background(), rollup.Key(rollup.AllStores), &doc) == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestStart_TicksStoriesCadence(t *testing.T) {
	accounts := []account.Record{{Handle: "SHIBUYA", IGID: "1", Token: "t"}}
	runner := collector.NewRunner(accounts, 0, nil)
	stories := &countingJob{name: "stories"}

	s := New(runner, nil, stories, nil, nil, nil,
		Intervals{Stories: 20 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		return stories.runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
