package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/graph"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

// sourceTag records which API version produced a snapshot.
const sourceTag = "ig_graph_v21.0"

// metricAliases maps legacy config spellings to current API metric names.
// Snapshots keep the legacy spelling so existing documents stay comparable.
var metricAliases = map[string]string{
	"impressions":      "content_views",
	"accounts_reached": "reach",
}

// allowedMetrics is the set the insights endpoint accepts; anything else in
// the configured list is dropped with a warning instead of failing the call.
var allowedMetrics = map[string]struct{}{
	"reach": {}, "follower_count": {}, "website_clicks": {}, "profile_views": {},
	"online_followers": {}, "accounts_engaged": {}, "total_interactions": {},
	"likes": {}, "comments": {}, "shares": {}, "saves": {}, "replies": {},
	"engaged_audience_demographics": {}, "reached_audience_demographics": {},
	"follower_demographics": {}, "follows_and_unfollows": {}, "profile_links_taps": {},
	"views": {}, "content_views": {},
}

// totalValueMetrics must be requested with metric_type=total_value.
var totalValueMetrics = map[string]struct{}{
	"content_views": {}, "profile_views": {}, "accounts_engaged": {},
}

func toAPI(name string) string {
	if api, ok := metricAliases[name]; ok {
		return api
	}
	return name
}

func fromAPI(name string) string {
	if name == "content_views" {
		return "impressions"
	}
	return name
}

// insightsSnapshot is the per-account daily document.
type insightsSnapshot struct {
	Date        string           `json:"date"`
	GeneratedAt string           `json:"generated_at"`
	Account     string           `json:"account"`
	Source      string           `json:"source"`
	Metrics     map[string]int64 `json:"metrics"`
}

// InsightsCollector fetches the configured metric set for the previous civil
// day and snapshots it under account/<handle>/<date>. A follower count in the
// metric set goes through the profile fields endpoint, not insights, and is
// also merged into the account's follower series.
type InsightsCollector struct {
	graph   graph.Caller
	repo    store.Repository
	metrics []string
	period  string
	nowFn   func() time.Time
}

func NewInsightsCollector(caller graph.Caller, repo store.Repository, metrics []string, period string) *InsightsCollector {
	if period == "" {
		period = "day"
	}
	return &InsightsCollector{graph: caller, repo: repo, metrics: metrics, period: period, nowFn: time.Now}
}

func (c *InsightsCollector) Name() string { return "insights" }

func (c *InsightsCollector) Run(ctx context.Context, acct account.Record) error {
	now := c.nowFn().In(timeseries.Zone)
	day := timeseries.StartOfDay(now).AddDate(0, 0, -1)
	date := timeseries.FormatDate(day)

	values := make(map[string]int64)
	apiNames, wantFollowers := c.insightMetricNames()
	if len(apiNames) > 0 {
		if err := c.fetchInsights(ctx, acct, day, apiNames, values); err != nil {
			return err
		}
	}
	if wantFollowers {
		followers, err := fetchFollowers(ctx, c.graph, acct)
		if err != nil {
			return err
		}
		values["followers_count"] = followers
		if _, err := mergeSeries(ctx, c.repo, acct.Handle, timeseries.Observation{T: now, Followers: followers}); err != nil {
			return err
		}
	}

	doc := insightsSnapshot{
		Date:        date,
		GeneratedAt: now.Format(time.RFC3339),
		Account:     acct.Handle,
		Source:      sourceTag,
		Metrics:     values,
	}
	key := "account/" + acct.Handle + "/" + date
	changed, err := c.repo.Put(ctx, key, doc)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	slog.Info("[Insights] Snapshot written", "handle", acct.Handle, "date", date,
		"outcome", outcome(changed), "metrics", len(values))
	return nil
}

// insightMetricNames translates the configured list to API names, dropping
// unsupported ones with a warning. Follower counts never go to the insights
// endpoint.
func (c *InsightsCollector) insightMetricNames() (names []string, wantFollowers bool) {
	var dropped []string
	for _, m := range c.metrics {
		if m == "followers_count" {
			wantFollowers = true
			continue
		}
		api := toAPI(m)
		if _, ok := allowedMetrics[api]; !ok {
			dropped = append(dropped, m)
			continue
		}
		if api == "follower_count" {
			continue
		}
		names = append(names, api)
	}
	if len(dropped) > 0 {
		slog.Warn("[Insights] Dropping unsupported metrics", "metrics", strings.Join(dropped, ","))
	}
	return names, wantFollowers
}

func (c *InsightsCollector) fetchInsights(ctx context.Context, acct account.Record, day time.Time, apiNames []string, values map[string]int64) error {
	since := day.Unix()
	until := since + 24*60*60 - 1

	params := url.Values{}
	params.Set("metric", strings.Join(apiNames, ","))
	params.Set("period", c.period)
	params.Set("since", strconv.FormatInt(since, 10))
	params.Set("until", strconv.FormatInt(until, 10))
	for _, n := range apiNames {
		if _, ok := totalValueMetrics[n]; ok {
			params.Set("metric_type", "total_value")
			break
		}
	}

	payload, err := c.graph.Call(ctx, acct.IGID+"/insights", params, acct.Token)
	if err != nil {
		return fmt.Errorf("fetch insights: %w", err)
	}
	var resp graph.InsightsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decode insights: %w", err)
	}
	for _, metric := range resp.Data {
		n, ok := metric.Reading()
		if !ok {
			n = 0
		}
		values[fromAPI(metric.Name)] = n
	}
	return nil
}

// fetchFollowers reads the follower count from the profile fields endpoint.
// Non-numeric payloads coerce to zero; only transport errors fail the call.
func fetchFollowers(ctx context.Context, caller graph.Caller, acct account.Record) (int64, error) {
	params := url.Values{}
	params.Set("fields", "followers_count,username")
	payload, err := caller.Call(ctx, acct.IGID, params, acct.Token)
	if err != nil {
		return 0, fmt.Errorf("fetch profile fields: %w", err)
	}
	var fields graph.AccountFields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return 0, fmt.Errorf("decode profile fields: %w", err)
	}
	return fields.Followers(), nil
}

func outcome(changed bool) string {
	if changed {
		return "updated"
	}
	return "nochange"
}
