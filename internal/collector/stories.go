package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/graph"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

var storyMetrics = []string{"impressions", "reach", "exits", "replies", "taps_forward", "taps_back"}

const storiesPageLimit = 50

// storyItem is one active story with whatever insights could be fetched for
// it. Metrics stays an empty map when the insights call fails; a story is
// never dropped for unreadable metrics.
type storyItem struct {
	ID        string           `json:"id"`
	Permalink string           `json:"permalink"`
	Timestamp string           `json:"timestamp"`
	Metrics   map[string]int64 `json:"metrics"`
}

// storiesSnapshot is one hourly document of active stories for a store.
type storiesSnapshot struct {
	Store       string      `json:"store"`
	FetchedAt   string      `json:"fetched_at"`
	Source      string      `json:"source"`
	Granularity string      `json:"granularity"`
	Version     string      `json:"version"`
	Items       []storyItem `json:"items"`
}

// StoriesCollector lists the account's active stories and writes them with
// per-story insights into the hour's snapshot.
type StoriesCollector struct {
	graph graph.Caller
	repo  store.Repository
	nowFn func() time.Time
}

func NewStoriesCollector(caller graph.Caller, repo store.Repository) *StoriesCollector {
	return &StoriesCollector{graph: caller, repo: repo, nowFn: time.Now}
}

func (c *StoriesCollector) Name() string { return "stories" }

func (c *StoriesCollector) Run(ctx context.Context, acct account.Record) error {
	params := url.Values{}
	params.Set("fields", "id,permalink,timestamp")
	params.Set("limit", fmt.Sprint(storiesPageLimit))
	payload, err := c.graph.Call(ctx, acct.IGID+"/stories", params, acct.Token)
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}
	var list graph.ListResponse
	if err := json.Unmarshal(payload, &list); err != nil {
		return fmt.Errorf("decode story list: %w", err)
	}

	items := make([]storyItem, 0, len(list.Data))
	for _, raw := range list.Data {
		var item storyItem
		if err := json.Unmarshal(raw, &item); err != nil || item.ID == "" {
			continue
		}
		item.Metrics = c.storyInsights(ctx, item.ID, acct.Token)
		items = append(items, item)
	}

	now := c.nowFn().In(timeseries.Zone)
	doc := storiesSnapshot{
		Store:       acct.Handle,
		FetchedAt:   now.Format(time.RFC3339),
		Source:      sourceTag,
		Granularity: "hourly",
		Version:     "v1",
		Items:       items,
	}
	key := "account/" + acct.Handle + "/stories/" + now.Format("2006-01-02T15")
	changed, err := c.repo.Put(ctx, key, doc)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	slog.Info("[Stories] Snapshot written", "handle", acct.Handle,
		"stories", len(items), "outcome", outcome(changed))
	return nil
}

// storyInsights is best effort: stories expire and insights lag, so failures
// yield an empty metric map instead of an error.
func (c *StoriesCollector) storyInsights(ctx context.Context, storyID, token string) map[string]int64 {
	metrics := make(map[string]int64)
	params := url.Values{}
	params.Set("metric", strings.Join(storyMetrics, ","))
	payload, err := c.graph.Call(ctx, storyID+"/insights", params, token)
	if err != nil {
		slog.Debug("[Stories] Insights unavailable", "story_id", storyID, "error", err)
		return metrics
	}
	var resp graph.InsightsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return metrics
	}
	for _, metric := range resp.Data {
		if n, ok := metric.Reading(); ok {
			metrics[metric.Name] = n
		}
	}
	return metrics
}
