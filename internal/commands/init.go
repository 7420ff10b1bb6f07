package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aldrienne/remit/internal/config"
	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/store"
)

// DefaultEmailTemplateID is the template seeded by init and the usual
// target of account mappings.
const DefaultEmailTemplateID = "standard-remittance"

const defaultEmailSubject = `Remittance advice from {{.Author.Name}}`

const defaultEmailBody = `<p>Dear {{.Recipient.Name}},</p>
<p>We have issued payment for the attached voucher(s). Each voucher lists
the bill reference and the amount covered.</p>
<p>Questions about these payments can go to {{.Author.Email}}.</p>
<p>{{.Author.Name}}</p>
`

const defaultVoucherTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Payment Voucher {{.OrderNumber}}</title>
</head>
<body>
  <h1>Payment Voucher</h1>
  <table>
    <tr><td>Voucher</td><td>{{.OrderNumber}}</td></tr>
    <tr><td>Date</td><td>{{.OrderDate}}</td></tr>
    <tr><td>Vendor</td><td>{{.VendorName}}</td></tr>
    <tr><td>Paid from</td><td>{{.AccountName}}</td></tr>
    <tr><td>Period</td><td>{{.PostingPeriod}}</td></tr>
    <tr><td>Amount</td><td>{{.Amount}}</td></tr>
  </table>
</body>
</html>
`

func newInitCommand() *cobra.Command {
	var authorName string
	var authorEmail string
	var reportTo string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a remit working directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, authorName, authorEmail, reportTo)
		},
	}

	cmd.Flags().StringVar(&authorName, "author-name", "", "email author display name")
	cmd.Flags().StringVar(&authorEmail, "author-email", "", "email author address (required before the first run)")
	cmd.Flags().StringVar(&reportTo, "report-to", "", "operational report address (required before the first run)")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, authorName, authorEmail, reportTo string) error {
	cfgPath := filepath.Join(dir, configFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists in %s", configFile, dir)
	}

	// Create directory structure.
	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"templates",
		"vouchers",
		"outbox",
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write remit.yaml.
	cfg := config.Default()
	cfg.Search.ID = store.DefaultSearchID
	cfg.Notify.PrintTemplate = "voucher"
	if authorName != "" {
		cfg.Author.Name = authorName
	}
	cfg.Author.Email = authorEmail
	cfg.Report.Recipient = reportTo
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Create the store schema and seed the default email template.
	st, err := store.Open(filepath.Join(dir, cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer st.Close()

	tpl := model.EmailTemplate{
		ID:      DefaultEmailTemplateID,
		Subject: defaultEmailSubject,
		Body:    defaultEmailBody,
	}
	if err := st.SaveEmailTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("seeding email template: %w", err)
	}

	// Write the default voucher template.
	voucherPath := filepath.Join(dir, "templates", "voucher.html")
	if err := os.WriteFile(voucherPath, []byte(defaultVoucherTemplate), 0o644); err != nil {
		return fmt.Errorf("writing voucher template: %w", err)
	}

	// Write .gitignore for the generated artifacts.
	gitignore := "remit.db\noutbox/\nvouchers/\nlogs/\nimport/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Write import/.gitkeep.
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(out, "Initialized remit project at %s\n", dir)
	if authorEmail == "" || reportTo == "" {
		fmt.Fprintln(out, "Set author.email and report.recipient in remit.yaml before the first run.")
	}
	return nil
}
