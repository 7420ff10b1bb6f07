// Package report aggregates a finished run into the summary the operator
// sees: counts, amounts, and every record or group that needs attention.
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/notify"
)

// RunMeta carries run identity and timing into the aggregation.
type RunMeta struct {
	RunID      string
	TotalInput int
	Started    time.Time
	Finished   time.Time
}

// Build folds group results and the two side channels into a summary.
// Pure: no I/O, no clock reads.
func Build(meta RunMeta, results []notify.GroupResult, skipped, errored []model.BucketEntry) model.SummaryReport {
	r := model.SummaryReport{
		RunID:          meta.RunID,
		TotalInput:     meta.TotalInput,
		AmountNotified: decimal.Zero,
		Skipped:        skipped,
		Errored:        errored,
		Started:        meta.Started,
		Finished:       meta.Finished,
	}
	for _, gr := range results {
		switch gr.Status {
		case notify.StatusSent:
			r.ProcessedGroups++
			r.EmailsSent++
			r.PaymentsNotified += gr.Group.Size()
			r.AmountNotified = r.AmountNotified.Add(gr.Amount)
			if len(gr.RenderFailures) > 0 || len(gr.FlagFailures) > 0 {
				r.GroupIssues = append(r.GroupIssues, issue(gr))
			}
		case notify.StatusDuplicate:
			// completed by a prior attempt of this run
			r.ProcessedGroups++
		default:
			r.GroupIssues = append(r.GroupIssues, issue(gr))
		}
	}
	return r
}

func issue(gr notify.GroupResult) model.GroupIssue {
	return model.GroupIssue{
		GroupKey:   gr.Group.Key,
		VendorName: gr.Group.EntityName,
		Status:     gr.Status,
		Detail:     detail(gr),
	}
}

func detail(gr notify.GroupResult) string {
	switch {
	case gr.Err != nil:
		return gr.Err.Error()
	case len(gr.RenderFailures) > 0 && len(gr.FlagFailures) > 0:
		return fmt.Sprintf("%d voucher(s) omitted, %d flag write(s) failed",
			len(gr.RenderFailures), len(gr.FlagFailures))
	case len(gr.RenderFailures) > 0:
		return fmt.Sprintf("%d voucher(s) omitted", len(gr.RenderFailures))
	case len(gr.FlagFailures) > 0:
		return fmt.Sprintf("%d flag write(s) failed", len(gr.FlagFailures))
	}
	return ""
}
