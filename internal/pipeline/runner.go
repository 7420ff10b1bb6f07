// Package pipeline wires the batch stages together: read the eligible
// payment search, normalize records in parallel, group them, notify each
// group, and aggregate the summary. Partial failures degrade into the
// report; only configuration and source failures abort a run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aldrienne/remit/internal/config"
	"github.com/aldrienne/remit/internal/group"
	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/normalize"
	"github.com/aldrienne/remit/internal/notify"
	"github.com/aldrienne/remit/internal/report"
)

// Cursor pages through a search result.
type Cursor interface {
	Count() int
	Next(ctx context.Context) ([]model.RawPaymentRecord, error)
	Close() error
}

// Source opens the eligible-payments search.
type Source interface {
	RunSearch(ctx context.Context, searchID string) (Cursor, error)
}

// GroupProcessor handles one payment group end to end.
type GroupProcessor interface {
	Process(ctx context.Context, runID string, group model.PaymentGroup) notify.GroupResult
}

// ReportSender delivers the operational summary email.
type ReportSender interface {
	SendOperationalReport(ctx context.Context, r model.SummaryReport) error
}

// Runner executes one batch run.
type Runner struct {
	cfg       *config.Config
	source    Source
	generator GroupProcessor
	reporter  ReportSender
	logger    *log.Logger
}

// NewRunner wires a runner. reporter may be nil (dry runs, tests).
func NewRunner(cfg *config.Config, source Source, generator GroupProcessor, reporter ReportSender, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{cfg: cfg, source: source, generator: generator, reporter: reporter, logger: logger}
}

// Run executes the batch. With dryRun the pipeline stops after grouping:
// it reports what would be notified and performs no sends, no file
// writes, no flag updates.
func (r *Runner) Run(ctx context.Context, runID string, dryRun bool) (model.SummaryReport, error) {
	started := time.Now().UTC()

	if err := r.cfg.Validate(); err != nil {
		return model.SummaryReport{}, err
	}

	total, out, err := r.collect(ctx, runID)
	if err != nil {
		return model.SummaryReport{}, err
	}
	r.logger.Printf("run %s: stage grouping done: %d group(s), %d skipped, %d errored",
		runID, len(out.Groups), len(out.Skipped), len(out.Errored))

	meta := report.RunMeta{RunID: runID, TotalInput: total, Started: started}

	if dryRun {
		for _, g := range out.Groups {
			r.logger.Printf("run %s: would notify %s: %d payment(s) to %s",
				runID, g.Key, g.Size(), g.VendorEmail)
		}
		meta.Finished = time.Now().UTC()
		rep := report.Build(meta, nil, out.Skipped, out.Errored)
		r.logger.Printf("run %s: done (dry run)", runID)
		return rep, nil
	}

	results, err := r.notifyAll(ctx, runID, out.Groups)
	if err != nil {
		return model.SummaryReport{}, err
	}

	r.logger.Printf("run %s: stage summarizing", runID)
	meta.Finished = time.Now().UTC()
	rep := report.Build(meta, results, out.Skipped, out.Errored)
	if r.reporter != nil {
		if err := r.reporter.SendOperationalReport(ctx, rep); err != nil {
			r.logger.Printf("run %s: operational report not sent: %v", runID, err)
		}
	}
	r.logger.Printf("run %s: done: %d email(s) sent, %d group(s) processed, %d payment(s) notified, amount %s",
		runID, rep.EmailsSent, rep.ProcessedGroups, rep.PaymentsNotified, rep.AmountNotified)
	return rep, nil
}

// collect drives the first three stages: page the search, normalize with
// a worker pool, and fold everything through the single-goroutine
// collector. It returns once every record has been grouped or bucketed.
func (r *Runner) collect(ctx context.Context, runID string) (int, group.Output, error) {
	r.logger.Printf("run %s: stage collecting-input: search %s", runID, r.cfg.Search.ID)
	cur, err := r.source.RunSearch(ctx, r.cfg.Search.ID)
	if err != nil {
		return 0, group.Output{}, fmt.Errorf("running search %s: %w", r.cfg.Search.ID, err)
	}
	defer cur.Close()

	total := cur.Count()
	r.logger.Printf("run %s: %d record(s) eligible", runID, total)

	records := make(chan model.RawPaymentRecord, r.cfg.Search.PageSize)
	results := make(chan normalize.Result, r.cfg.Search.PageSize)

	workers := r.cfg.Workers.Normalize
	r.logger.Printf("run %s: stage normalizing: %d worker(s)", runID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range records {
				select {
				case results <- normalize.Normalize(raw):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// exactly one goroutine touches the collector
	collector := group.NewCollector()
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			collector.Add(res)
		}
	}()

	feedErr := r.feed(ctx, cur, records)
	close(records)
	wg.Wait()
	close(results)
	<-collectorDone

	if feedErr != nil {
		return 0, group.Output{}, feedErr
	}
	return total, collector.Output(), nil
}

func (r *Runner) feed(ctx context.Context, cur Cursor, records chan<- model.RawPaymentRecord) error {
	for {
		page, err := cur.Next(ctx)
		if err != nil {
			return fmt.Errorf("reading search page: %w", err)
		}
		if page == nil {
			return nil
		}
		for _, raw := range page {
			select {
			case records <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// notifyAll fans the groups out to the notify workers and joins on all of
// them. Results keep the groups' first-seen order.
func (r *Runner) notifyAll(ctx context.Context, runID string, groups []model.PaymentGroup) ([]notify.GroupResult, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	workers := min(r.cfg.Workers.Notify, len(groups))
	r.logger.Printf("run %s: stage notifying: %d group(s), %d worker(s)", runID, len(groups), workers)

	results := make([]notify.GroupResult, len(groups))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.generator.Process(ctx, runID, groups[i])
			}
		}()
	}

	var feedErr error
feeding:
	for i := range groups {
		select {
		case jobs <- i:
		case <-ctx.Done():
			feedErr = ctx.Err()
			break feeding
		}
	}
	close(jobs)
	wg.Wait()

	if feedErr != nil {
		return nil, feedErr
	}
	return results, nil
}
