package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/aldrienne/remit/internal/mail"
	"github.com/aldrienne/remit/internal/model"
)

// Mailer delivers the operational report email.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Notifier emails the run summary to the operational recipient whenever a
// run produced skipped records, errored records, or incomplete groups.
type Notifier struct {
	mailer    Mailer
	author    model.Identity
	recipient string
}

// NewNotifier builds a notifier addressing recipient.
func NewNotifier(mailer Mailer, author model.Identity, recipient string) *Notifier {
	return &Notifier{mailer: mailer, author: author, recipient: recipient}
}

const bodyTemplate = `<h2>Remittance advice run {{.RunID}}</h2>
<table border="1" cellpadding="4" cellspacing="0">
  <tr><td>Records in</td><td>{{.TotalInput}}</td></tr>
  <tr><td>Groups processed</td><td>{{.ProcessedGroups}}</td></tr>
  <tr><td>Emails sent</td><td>{{.EmailsSent}}</td></tr>
  <tr><td>Payments notified</td><td>{{.PaymentsNotified}}</td></tr>
  <tr><td>Amount notified</td><td>{{.AmountNotified}}</td></tr>
  <tr><td>Duration</td><td>{{.Duration}}</td></tr>
</table>
{{if .Skipped}}
<h3>Skipped records ({{len .Skipped}})</h3>
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Record</th><th>Document</th><th>Vendor</th><th>Reason</th></tr>
  {{range .Skipped}}<tr><td>{{.RecordID}}</td><td>{{.OrderNumber}}</td><td>{{.EntityName}}</td><td>{{.ErrorNote}}</td></tr>
  {{end}}
</table>
{{end}}
{{if .Errored}}
<h3>Errored records ({{len .Errored}})</h3>
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Record</th><th>Document</th><th>Vendor</th><th>Error</th></tr>
  {{range .Errored}}<tr><td>{{.RecordID}}</td><td>{{.OrderNumber}}</td><td>{{.EntityName}}</td><td>{{.ErrorNote}}</td></tr>
  {{end}}
</table>
{{end}}
{{if .GroupIssues}}
<h3>Incomplete groups ({{len .GroupIssues}})</h3>
<table border="1" cellpadding="4" cellspacing="0">
  <tr><th>Group</th><th>Vendor</th><th>Status</th><th>Detail</th></tr>
  {{range .GroupIssues}}<tr><td>{{.GroupKey}}</td><td>{{.VendorName}}</td><td>{{.Status}}</td><td>{{.Detail}}</td></tr>
  {{end}}
</table>
{{end}}`

var reportBody = template.Must(template.New("report").Parse(bodyTemplate))

// SendOperationalReport composes and sends the issues email. A clean run
// sends nothing and returns nil.
func (n *Notifier) SendOperationalReport(ctx context.Context, r model.SummaryReport) error {
	if !r.HasIssues() {
		return nil
	}

	var body bytes.Buffer
	if err := reportBody.Execute(&body, r); err != nil {
		return fmt.Errorf("composing report for run %s: %w", r.RunID, err)
	}

	msg := mail.Message{
		From:     n.author.Email,
		FromName: n.author.Name,
		To:       n.recipient,
		Subject: fmt.Sprintf("Remittance run %s: %d sent, %d skipped, %d errors",
			r.RunID, r.EmailsSent, len(r.Skipped), len(r.Errored)),
		Body: body.String(),
		HTML: true,
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending report for run %s: %w", r.RunID, err)
	}
	return nil
}
