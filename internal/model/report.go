package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupIssue is one payment group that did not complete this run: its
// outcome status and a short cause.
type GroupIssue struct {
	GroupKey   string
	VendorName string
	Status     string
	Detail     string
}

// SummaryReport is the end-of-run accounting of a notification batch.
// Built once by the aggregator after all generator work has finished;
// never mutated afterwards.
type SummaryReport struct {
	RunID            string
	TotalInput       int // records supplied by the search, before normalization
	ProcessedGroups  int // groups completed (sent this run or by a prior attempt)
	EmailsSent       int
	PaymentsNotified int
	AmountNotified   decimal.Decimal
	Skipped          []BucketEntry
	Errored          []BucketEntry
	GroupIssues      []GroupIssue
	Started          time.Time
	Finished         time.Time
}

// HasIssues reports whether any record or group needs operator attention.
func (r SummaryReport) HasIssues() bool {
	return len(r.Skipped) > 0 || len(r.Errored) > 0 || len(r.GroupIssues) > 0
}

// Duration returns the wall-clock time of the run.
func (r SummaryReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
