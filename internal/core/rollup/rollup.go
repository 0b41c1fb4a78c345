// Package rollup rebuilds the daily posts/reels/stories count series per
// store and for all stores combined. Every run is a full rebuild from the
// source snapshots; nothing is patched incrementally.
package rollup

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"sort"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

// AllStores is the pseudo-store of the combined document.
const AllStores = "ALL"

// Row is one civil day of content counts for one store.
type Row struct {
	Date         string `json:"date"`
	PostsCount   int    `json:"posts_count"`
	ReelsCount   int    `json:"reels_count"`
	StoriesCount int    `json:"stories_count"`
}

// Document is the persisted roll-up series. UpdatedAtCivil is the one field
// allowed to differ between two rebuilds of identical data; Save compares
// the Items payload only, so the stamp never defeats write-if-changed.
type Document struct {
	Store          string `json:"store"`
	Version        string `json:"version"`
	UpdatedAtCivil string `json:"updated_at_civil"`
	Granularity    string `json:"granularity"`
	Items          []Row  `json:"items"`
}

// sourceDoc is the common envelope of posts/reels/stories snapshots; only
// the item count matters here.
type sourceDoc struct {
	Items []map[string]any `json:"items"`
}

// Key returns the snapshot key a store's roll-up document lives under.
func Key(storeName string) string { return "rollup/" + storeName }

// Builder scans source snapshots and produces roll-up documents.
type Builder struct {
	repo  store.Repository
	nowFn func() time.Time
}

func NewBuilder(repo store.Repository) *Builder {
	return &Builder{repo: repo, nowFn: time.Now}
}

// BuildStore rebuilds one store's daily counts from its posts, reels and
// stories snapshots. Posts and reels are daily documents; stories are hourly
// documents summed into their civil day. Unreadable snapshots are skipped.
func (b *Builder) BuildStore(ctx context.Context, storeName string) (*Document, error) {
	counts := make(map[string]*Row)
	row := func(date string) *Row {
		r, ok := counts[date]
		if !ok {
			r = &Row{Date: date}
			counts[date] = r
		}
		return r
	}

	if err := b.scan(ctx, "posts/"+storeName, func(date string, n int) {
		row(date).PostsCount += n
	}); err != nil {
		return nil, err
	}
	if err := b.scan(ctx, "reels/"+storeName, func(date string, n int) {
		row(date).ReelsCount += n
	}); err != nil {
		return nil, err
	}
	if err := b.scan(ctx, "account/"+storeName+"/stories", func(date string, n int) {
		row(date).StoriesCount += n
	}); err != nil {
		return nil, err
	}

	return b.document(storeName, counts), nil
}

// BuildAll sums the already-built per-store roll-up documents by date. A
// store without a row for some date simply contributes nothing there; the
// date stays in the result as long as one store has it.
func (b *Builder) BuildAll(ctx context.Context, stores []string) (*Document, error) {
	counts := make(map[string]*Row)
	for _, s := range stores {
		var doc Document
		err := b.repo.Get(ctx, Key(s), &doc)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read roll-up for %s: %w", s, err)
		}
		for _, item := range doc.Items {
			r, ok := counts[item.Date]
			if !ok {
				r = &Row{Date: item.Date}
				counts[item.Date] = r
			}
			r.PostsCount += item.PostsCount
			r.ReelsCount += item.ReelsCount
			r.StoriesCount += item.StoriesCount
		}
	}
	return b.document(AllStores, counts), nil
}

// Save persists doc under its store's key unless the data payload is
// unchanged since the previous run; the updated-at stamp alone never forces
// a write.
func (b *Builder) Save(ctx context.Context, doc *Document) (bool, error) {
	var prev Document
	err := b.repo.Get(ctx, Key(doc.Store), &prev)
	if err == nil && prev.Store == doc.Store && prev.Granularity == doc.Granularity &&
		prev.Version == doc.Version && slices.Equal(prev.Items, doc.Items) {
		return false, nil
	}
	if err != nil && err != store.ErrNotFound {
		return false, fmt.Errorf("read previous roll-up for %s: %w", doc.Store, err)
	}
	return b.repo.Put(ctx, Key(doc.Store), doc)
}

// Rebuild rebuilds and saves every store's document and then the combined
// ALL document. Returns how many documents actually changed.
func (b *Builder) Rebuild(ctx context.Context, stores []string) (int, error) {
	changed := 0
	for _, s := range stores {
		doc, err := b.BuildStore(ctx, s)
		if err != nil {
			return changed, fmt.Errorf("rebuild %s: %w", s, err)
		}
		wrote, err := b.Save(ctx, doc)
		if err != nil {
			return changed, err
		}
		if wrote {
			changed++
		}
	}

	doc, err := b.BuildAll(ctx, stores)
	if err != nil {
		return changed, fmt.Errorf("rebuild %s: %w", AllStores, err)
	}
	wrote, err := b.Save(ctx, doc)
	if err != nil {
		return changed, err
	}
	if wrote {
		changed++
	}
	return changed, nil
}

func (b *Builder) document(storeName string, counts map[string]*Row) *Document {
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	items := make([]Row, 0, len(dates))
	for _, d := range dates {
		items = append(items, *counts[d])
	}
	return &Document{
		Store:          storeName,
		Version:        "v1",
		UpdatedAtCivil: timeseries.FormatDate(b.nowFn()),
		Granularity:    "daily",
		Items:          items,
	}
}

func (b *Builder) scan(ctx context.Context, prefix string, add func(date string, n int)) error {
	keys, err := b.repo.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, key := range keys {
		date, ok := DateFromKey(key)
		if !ok {
			continue
		}
		var doc sourceDoc
		if err := b.repo.Get(ctx, key, &doc); err != nil {
			slog.Warn("[Rollup] Skipping unreadable snapshot", "key", key, "error", err)
			continue
		}
		add(date, len(doc.Items))
	}
	return nil
}

var dailyKeyPattern = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})$`)

// DateFromKey extracts the civil date a snapshot key belongs to. Daily
// documents end in YYYY/MM/DD; hourly story documents end in YYYY-MM-DDTHH.
func DateFromKey(key string) (string, bool) {
	base := path.Base(key)
	if i := len("2006-01-02"); len(base) > i && base[i] == 'T' {
		date := base[:i]
		if _, err := timeseries.ParseDate(date); err == nil {
			return date, true
		}
		return "", false
	}
	if m := dailyKeyPattern.FindStringSubmatch(key); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3], true
	}
	return "", false
}
