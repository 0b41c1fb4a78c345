// Package collector fetches account metrics from the Graph API and persists
// them as snapshots. Jobs run per account; the runner walks the account list
// sequentially with a throttle, isolating failures so one bad account never
// stops the batch.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/observability"
)

// Job is one collection task executed once per account.
type Job interface {
	Name() string
	Run(ctx context.Context, acct account.Record) error
}

// Summary is the outcome of one runner pass over the account list.
type Summary struct {
	RunID     string
	Job       string
	Processed int
	Skipped   int
	Errors    []error
}

// AllFailed reports whether every attempted account errored. Partial success
// is still success for exit-code purposes.
func (s Summary) AllFailed() bool {
	return s.Processed == 0 && len(s.Errors) > 0
}

// Runner executes a job across the configured accounts.
type Runner struct {
	accounts []account.Record
	throttle time.Duration
	metrics  *observability.Metrics
}

// NewRunner builds a runner. metrics may be nil for one-shot CLI use.
func NewRunner(accounts []account.Record, throttle time.Duration, metrics *observability.Metrics) *Runner {
	return &Runner{accounts: accounts, throttle: throttle, metrics: metrics}
}

// Run walks the account list once. Incomplete records are skipped with a
// warning naming the missing credentials; failing accounts are recorded and
// the walk continues. Only context cancellation stops the pass early.
func (r *Runner) Run(ctx context.Context, job Job) Summary {
	summary := Summary{RunID: uuid.NewString(), Job: job.Name()}
	logger := slog.With("run_id", summary.RunID, "job", summary.Job)
	logger.Info("[Collector] Starting run", "accounts", len(r.accounts))

	for i, acct := range r.accounts {
		if !acct.Complete() {
			logger.Warn("[Collector] Skipping account with missing credentials",
				"handle", acct.Handle, "ig_id_set", acct.IGID != "", "token_set", acct.Token != "")
			summary.Skipped++
			if r.metrics != nil {
				r.metrics.AccountsSkipped.Inc()
			}
			continue
		}

		if err := job.Run(ctx, acct); err != nil {
			if ctx.Err() != nil {
				summary.Errors = append(summary.Errors, ctx.Err())
				break
			}
			logger.Error("[Collector] Account failed", "handle", acct.Handle, "error", err)
			summary.Errors = append(summary.Errors, &AccountError{Handle: acct.Handle, Err: err})
			if r.metrics != nil {
				r.metrics.AccountErrors.WithLabelValues(summary.Job).Inc()
			}
		} else {
			summary.Processed++
			if r.metrics != nil {
				r.metrics.AccountsProcessed.Inc()
			}
		}

		if r.throttle > 0 && i < len(r.accounts)-1 {
			select {
			case <-time.After(r.throttle):
			case <-ctx.Done():
				summary.Errors = append(summary.Errors, ctx.Err())
				return r.finish(logger, summary)
			}
		}
	}
	return r.finish(logger, summary)
}

func (r *Runner) finish(logger *slog.Logger, summary Summary) Summary {
	status := "ok"
	if len(summary.Errors) > 0 {
		status = "partial"
	}
	if summary.AllFailed() {
		status = "failed"
	}
	logger.Info("[Collector] Run finished",
		"status", status, "processed", summary.Processed,
		"skipped", summary.Skipped, "errors", len(summary.Errors))
	if r.metrics != nil {
		r.metrics.CollectorRunsTotal.WithLabelValues(summary.Job, status).Inc()
		if len(summary.Errors) == 0 {
			r.metrics.LastSuccessfulCollection.SetToCurrentTime()
		}
	}
	return summary
}
