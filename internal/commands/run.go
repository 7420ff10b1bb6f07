package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aldrienne/remit/internal/config"
	"github.com/aldrienne/remit/internal/filestore"
	"github.com/aldrienne/remit/internal/mail"
	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/notify"
	"github.com/aldrienne/remit/internal/pipeline"
	"github.com/aldrienne/remit/internal/render"
	"github.com/aldrienne/remit/internal/report"
	"github.com/aldrienne/remit/internal/runlog"
	"github.com/aldrienne/remit/internal/store"
)

func newRunCommand() *cobra.Command {
	var (
		workdir  string
		runID    string
		searchID string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send remittance emails for eligible payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(workdir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runBatch(cmd, absDir, runID, searchID, dryRun)
		},
	}

	cmd.Flags().StringVar(&workdir, "workdir", ".", "project directory")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identity; reuse the id of a crashed run to resume it")
	cmd.Flags().StringVar(&searchID, "search", "", "override the configured eligible-payments search")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without sending emails or flagging payments")

	return cmd
}

// storeSource adapts the store's paginated search to the pipeline's
// record source; the page size is fixed from configuration.
type storeSource struct {
	store    *store.Store
	pageSize int
}

func (s *storeSource) RunSearch(ctx context.Context, searchID string) (pipeline.Cursor, error) {
	return s.store.RunSearch(ctx, searchID, s.pageSize)
}

func runBatch(cmd *cobra.Command, dir, runID, searchID string, dryRun bool) error {
	cfg, err := config.Load(filepath.Join(dir, configFile))
	if err != nil {
		return err
	}
	if searchID != "" {
		cfg.Search.ID = searchID
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	st, err := store.Open(resolvePath(dir, cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	cfg.Mail.OutboxDir = resolvePath(dir, cfg.Mail.OutboxDir)
	sender, err := mail.NewSender(cfg.Mail)
	if err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	author := model.Identity{Name: cfg.Author.Name, Email: cfg.Author.Email}

	var renderer notify.VoucherRenderer = render.NewVoucher()
	if cfg.Vouchers.PDFConverter != "" {
		renderer = render.NewPDFConverter(cfg.Vouchers.PDFConverter, render.NewVoucher())
	}

	generator := notify.NewGenerator(notify.Options{
		Resolver: st,
		Merger:   render.NewMerger(st),
		Renderer: renderer,
		Files:    filestore.NewDisk(resolvePath(dir, cfg.Vouchers.Dir)),
		Mailer:   sender,
		Payments: st,
		Registry: st,
		Logger:   logger,

		Author:          author,
		VoucherTemplate: filepath.Join(dir, "templates", cfg.Notify.PrintTemplate+".html"),
		RenderFailure:   cfg.Notify.RenderFailure,
	})

	reporter := report.NewNotifier(sender, author, cfg.Report.Recipient)
	source := &storeSource{store: st, pageSize: cfg.Search.PageSize}
	runner := pipeline.NewRunner(cfg, source, generator, reporter, logger)

	started := time.Now().UTC()
	rep, err := runner.Run(cmd.Context(), runID, dryRun)
	if err != nil {
		appendRunLog(cmd.ErrOrStderr(), dir, runlog.Entry{
			RunID:    runID,
			Started:  started,
			Status:   runlog.StatusFailed,
			Duration: time.Since(started),
		})
		return err
	}

	appendRunLog(cmd.ErrOrStderr(), dir, runlog.FromReport(rep, dryRun))
	printSummary(cmd.OutOrStdout(), rep, dryRun)
	return nil
}

// appendRunLog records the audit row. A run that completed is not failed
// by a log write problem; the operator is warned instead.
func appendRunLog(errOut io.Writer, dir string, e runlog.Entry) {
	if err := runlog.Append(dir, e); err != nil {
		fmt.Fprintf(errOut, "warning: run log not written: %v\n", err)
	}
}

func printSummary(out io.Writer, r model.SummaryReport, dryRun bool) {
	if dryRun {
		fmt.Fprintf(out, "Dry run %s: %d record(s) eligible, %d skipped, %d errored\n",
			r.RunID, r.TotalInput, len(r.Skipped), len(r.Errored))
		return
	}
	fmt.Fprintf(out, "Run %s: %d email(s) sent, %d payment(s) notified, amount %s\n",
		r.RunID, r.EmailsSent, r.PaymentsNotified, r.AmountNotified)
	if len(r.Skipped) > 0 || len(r.Errored) > 0 {
		fmt.Fprintf(out, "Records needing attention: %d skipped, %d errored\n",
			len(r.Skipped), len(r.Errored))
	}
	for _, issue := range r.GroupIssues {
		fmt.Fprintf(out, "Group %s (%s): %s: %s\n", issue.GroupKey, issue.VendorName, issue.Status, issue.Detail)
	}
}

// resolvePath anchors a relative config path at the project directory.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
