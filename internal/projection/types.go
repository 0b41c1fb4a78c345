package projection

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/timeseries"
)

// WindowResponse is one resampled follower window, for a single account or
// the combined ALL view.
type WindowResponse struct {
	Handle      string            `json:"handle"`
	Granularity string            `json:"granularity"`
	Date        string            `json:"date"`
	Buckets     timeseries.Window `json:"buckets"`
}

// SummaryRow is one dashboard card. Delta and GrowthRate are null when the
// window is too thin to define them; the card renders a blank, not a zero.
type SummaryRow struct {
	Handle     string           `json:"handle"`
	Current    int64            `json:"current"`
	ObservedAt time.Time        `json:"observed_at"`
	Delta      *int64           `json:"delta"`
	GrowthRate *decimal.Decimal `json:"growth_rate"`
}

// SummaryResponse carries every account card plus the combined total card.
// Total is null when no account has any observation.
type SummaryResponse struct {
	Granularity string       `json:"granularity"`
	Date        string       `json:"date"`
	Accounts    []SummaryRow `json:"accounts"`
	Total       *SummaryRow  `json:"total"`
}

// RankingResponse is the top/bottom movers for one window.
type RankingResponse struct {
	Granularity string  `json:"granularity"`
	Date        string  `json:"date"`
	Top         []Entry `json:"top"`
	Bottom      []Entry `json:"bottom"`
}

// Entry is one ranked account.
type Entry struct {
	Handle string `json:"handle"`
	Delta  int64  `json:"delta"`
}

// AccountsResponse lists the tracked account handles in configuration order.
type AccountsResponse struct {
	Accounts []string `json:"accounts"`
}
