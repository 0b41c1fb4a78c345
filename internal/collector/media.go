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

const (
	mediaFetchLimit = 100
	mediaPageSize   = 100
)

var mediaFields = strings.Join([]string{
	"id", "media_type", "media_product_type", "timestamp", "permalink",
	"caption", "like_count", "comments_count",
}, ",")

// mediaItem is one feed entry. The Graph timestamp format has no colon in
// the offset, so parsing uses the -0700 layout.
type mediaItem struct {
	ID               string `json:"id"`
	MediaType        string `json:"media_type"`
	MediaProductType string `json:"media_product_type"`
	Timestamp        string `json:"timestamp"`
	Permalink        string `json:"permalink"`
	Caption          string `json:"caption,omitempty"`
	LikeCount        int64  `json:"like_count"`
	CommentsCount    int64  `json:"comments_count"`
}

const graphTimestampLayout = "2006-01-02T15:04:05-0700"

// mediaSnapshot is one civil day of posts or reels for a store.
type mediaSnapshot struct {
	Date        string      `json:"date"`
	GeneratedAt string      `json:"generated_at"`
	Account     string      `json:"account"`
	Source      string      `json:"source"`
	Items       []mediaItem `json:"items"`
}

// MediaCollector pages through the account's recent media and writes one
// document per civil publish day, reels separated from posts. These documents
// are what the daily roll-up counts.
type MediaCollector struct {
	graph graph.Caller
	repo  store.Repository
	nowFn func() time.Time
}

func NewMediaCollector(caller graph.Caller, repo store.Repository) *MediaCollector {
	return &MediaCollector{graph: caller, repo: repo, nowFn: time.Now}
}

func (c *MediaCollector) Name() string { return "media" }

func (c *MediaCollector) Run(ctx context.Context, acct account.Record) error {
	items, err := c.fetchMedia(ctx, acct)
	if err != nil {
		return err
	}

	posts := make(map[string][]mediaItem)
	reels := make(map[string][]mediaItem)
	for _, item := range items {
		published, err := time.Parse(graphTimestampLayout, item.Timestamp)
		if err != nil {
			slog.Warn("[Media] Skipping item with unparseable timestamp",
				"handle", acct.Handle, "media_id", item.ID, "timestamp", item.Timestamp)
			continue
		}
		date := timeseries.FormatDate(published.In(timeseries.Zone))
		if item.MediaProductType == "REELS" {
			reels[date] = append(reels[date], item)
		} else {
			posts[date] = append(posts[date], item)
		}
	}

	now := c.nowFn().In(timeseries.Zone)
	if err := c.writeDays(ctx, "posts", acct.Handle, posts, now); err != nil {
		return err
	}
	if err := c.writeDays(ctx, "reels", acct.Handle, reels, now); err != nil {
		return err
	}
	slog.Info("[Media] Snapshots written", "handle", acct.Handle,
		"items", len(items), "post_days", len(posts), "reel_days", len(reels))
	return nil
}

func (c *MediaCollector) fetchMedia(ctx context.Context, acct account.Record) ([]mediaItem, error) {
	var (
		items []mediaItem
		after string
	)
	for len(items) < mediaFetchLimit {
		params := url.Values{}
		params.Set("fields", mediaFields)
		params.Set("limit", strconv.Itoa(min(mediaPageSize, mediaFetchLimit-len(items))))
		if after != "" {
			params.Set("after", after)
		}
		payload, err := c.graph.Call(ctx, acct.IGID+"/media", params, acct.Token)
		if err != nil {
			return nil, fmt.Errorf("list media: %w", err)
		}
		var page graph.ListResponse
		if err := json.Unmarshal(payload, &page); err != nil {
			return nil, fmt.Errorf("decode media list: %w", err)
		}
		for _, raw := range page.Data {
			var item mediaItem
			if err := json.Unmarshal(raw, &item); err == nil && item.ID != "" {
				items = append(items, item)
			}
		}
		if page.Paging == nil || page.Paging.Next == "" || page.Paging.Cursors.After == "" {
			break
		}
		after = page.Paging.Cursors.After
	}
	return items, nil
}

// writeDays persists one document per civil day. Keys follow the
// <kind>/<store>/YYYY/MM/DD layout the roll-up scanner expects.
func (c *MediaCollector) writeDays(ctx context.Context, kind, handle string, days map[string][]mediaItem, now time.Time) error {
	for date, dayItems := range days {
		key := kind + "/" + handle + "/" + strings.ReplaceAll(date, "-", "/")
		doc := mediaSnapshot{
			Date:        date,
			GeneratedAt: now.Format(time.RFC3339),
			Account:     handle,
			Source:      sourceTag,
			Items:       dayItems,
		}
		if _, err := c.repo.Put(ctx, key, doc); err != nil {
			return fmt.Errorf("write snapshot %s: %w", key, err)
		}
	}
	return nil
}
