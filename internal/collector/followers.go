package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/graph"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

// FollowersCollector probes the current follower count and appends it to the
// account's series. Unlike the daily insights job this one rejects payloads
// without a numeric count; a probe that cannot produce a point is a failure.
type FollowersCollector struct {
	graph graph.Caller
	repo  store.Repository
	nowFn func() time.Time
}

func NewFollowersCollector(caller graph.Caller, repo store.Repository) *FollowersCollector {
	return &FollowersCollector{graph: caller, repo: repo, nowFn: time.Now}
}

func (c *FollowersCollector) Name() string { return "followers" }

func (c *FollowersCollector) Run(ctx context.Context, acct account.Record) error {
	params := url.Values{}
	params.Set("fields", "followers_count,username")
	payload, err := c.graph.Call(ctx, acct.IGID, params, acct.Token)
	if err != nil {
		return fmt.Errorf("fetch profile fields: %w", err)
	}

	var fields graph.AccountFields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return fmt.Errorf("decode profile fields: %w", err)
	}
	followers, ok := graph.Number(fields.FollowersCount)
	if !ok {
		return fmt.Errorf("profile payload has no numeric followers_count")
	}
	handle := acct.Handle
	if handle == "" {
		handle = fields.Username
	}
	if handle == "" {
		return fmt.Errorf("profile payload has no username")
	}

	obs := timeseries.Observation{T: c.nowFn().In(timeseries.Zone), Followers: followers}
	changed, err := mergeSeries(ctx, c.repo, handle, obs)
	if err != nil {
		return err
	}
	slog.Info("[Followers] Series merged", "handle", handle,
		"followers", followers, "outcome", outcome(changed))
	return nil
}
