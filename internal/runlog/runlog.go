// Package runlog keeps the durable audit trail of notification runs:
// one CSV row per run appended to logs/run-log.csv.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldrienne/remit/internal/model"
)

// Run outcome statuses.
const (
	StatusClean  = "clean"
	StatusIssues = "issues"
	StatusFailed = "failed"
	StatusDryRun = "dry-run"
)

// Entry is one row in the run log.
type Entry struct {
	RunID            string
	Started          time.Time
	Status           string
	Duration         time.Duration
	TotalInput       int
	EmailsSent       int
	PaymentsNotified int
	AmountNotified   decimal.Decimal
	Skipped          int
	Errored          int
	GroupIssues      int
}

// Header is the CSV header for run-log.csv.
const Header = "run_id,started,status,duration,input,emails_sent,payments_notified,amount_notified,skipped,errored,group_issues"

const (
	numFields = 11
	logDir    = "logs"
	logFile   = "logs/run-log.csv"

	colRunID       = 0
	colStarted     = 1
	colStatus      = 2
	colDuration    = 3
	colInput       = 4
	colEmailsSent  = 5
	colPayments    = 6
	colAmount      = 7
	colSkipped     = 8
	colErrored     = 9
	colGroupIssues = 10
)

// FromReport builds the audit row for a completed run.
func FromReport(r model.SummaryReport, dryRun bool) Entry {
	status := StatusClean
	switch {
	case dryRun:
		status = StatusDryRun
	case r.HasIssues():
		status = StatusIssues
	}
	return Entry{
		RunID:            r.RunID,
		Started:          r.Started,
		Status:           status,
		Duration:         r.Duration(),
		TotalInput:       r.TotalInput,
		EmailsSent:       r.EmailsSent,
		PaymentsNotified: r.PaymentsNotified,
		AmountNotified:   r.AmountNotified,
		Skipped:          len(r.Skipped),
		Errored:          len(r.Errored),
		GroupIssues:      len(r.GroupIssues),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colRunID] = e.RunID
	row[colStarted] = e.Started.Format(time.RFC3339)
	row[colStatus] = e.Status
	row[colDuration] = e.Duration.String()
	row[colInput] = strconv.Itoa(e.TotalInput)
	row[colEmailsSent] = strconv.Itoa(e.EmailsSent)
	row[colPayments] = strconv.Itoa(e.PaymentsNotified)
	row[colAmount] = e.AmountNotified.String()
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colErrored] = strconv.Itoa(e.Errored)
	row[colGroupIssues] = strconv.Itoa(e.GroupIssues)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	started, err := time.Parse(time.RFC3339, record[colStarted])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing started %q: %w", record[colStarted], err)
	}
	duration, err := time.ParseDuration(record[colDuration])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing duration %q: %w", record[colDuration], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	e := Entry{
		RunID:          record[colRunID],
		Started:        started,
		Status:         record[colStatus],
		Duration:       duration,
		AmountNotified: amount,
	}
	counts := []struct {
		name string
		col  int
		dst  *int
	}{
		{"input", colInput, &e.TotalInput},
		{"emails_sent", colEmailsSent, &e.EmailsSent},
		{"payments_notified", colPayments, &e.PaymentsNotified},
		{"skipped", colSkipped, &e.Skipped},
		{"errored", colErrored, &e.Errored},
		{"group_issues", colGroupIssues, &e.GroupIssues},
	}
	for _, c := range counts {
		n, err := strconv.Atoi(record[c.col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing %s %q: %w", c.name, record[c.col], err)
		}
		*c.dst = n
	}
	return e, nil
}

// Append writes one run entry to <workdir>/logs/run-log.csv, creating the
// file and header if needed.
func Append(workdir string, e Entry) error {
	dir := filepath.Join(workdir, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(workdir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := cw.Write(MarshalEntry(e)); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return cw.Error()
}

// Read returns all entries from <workdir>/logs/run-log.csv.
// Returns nil if the file does not exist.
func Read(workdir string) ([]Entry, error) {
	path := filepath.Join(workdir, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
