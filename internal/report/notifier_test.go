package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldrienne/remit/internal/mail"
	"github.com/aldrienne/remit/internal/model"
)

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func issueReport() model.SummaryReport {
	return model.SummaryReport{
		RunID:            "run-1",
		TotalInput:       3,
		ProcessedGroups:  2,
		EmailsSent:       2,
		PaymentsNotified: 2,
		AmountNotified:   decimal.RequireFromString("300.75"),
		Skipped: []model.BucketEntry{
			{RecordID: "103", OrderNumber: "PAY-1003", EntityName: "Acme Supply Co",
				ErrorNote: "missing required field(s): vendor email"},
		},
		GroupIssues: []model.GroupIssue{
			{GroupKey: "A2_V9", VendorName: "Globex", Status: "send-failed", Detail: "relay down"},
		},
		Started:  time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
		Finished: time.Date(2026, 8, 20, 6, 2, 0, 0, time.UTC),
	}
}

func TestSendOperationalReport(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, model.Identity{Name: "Accounts Payable", Email: "ap@example.com"}, "ops@example.com")

	err := n.SendOperationalReport(context.Background(), issueReport())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, "ap@example.com", msg.From)
	assert.Equal(t, "Remittance run run-1: 2 sent, 1 skipped, 0 errors", msg.Subject)
	assert.True(t, msg.HTML)

	assert.Contains(t, msg.Body, "PAY-1003")
	assert.Contains(t, msg.Body, "missing required field(s): vendor email")
	assert.Contains(t, msg.Body, "A2_V9")
	assert.Contains(t, msg.Body, "relay down")
	assert.Contains(t, msg.Body, "300.75")
}

func TestSendOperationalReportCleanRun(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, model.Identity{Email: "ap@example.com"}, "ops@example.com")

	err := n.SendOperationalReport(context.Background(), model.SummaryReport{RunID: "run-1"})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent, "clean runs send no report")
}

func TestSendOperationalReportMailerFailure(t *testing.T) {
	relayDown := errors.New("relay down")
	n := NewNotifier(&fakeMailer{err: relayDown}, model.Identity{Email: "ap@example.com"}, "ops@example.com")

	err := n.SendOperationalReport(context.Background(), issueReport())
	assert.ErrorIs(t, err, relayDown)
}
