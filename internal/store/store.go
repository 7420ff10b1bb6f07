// Package store is the SQLite-backed payment store. It holds the imported
// payment rows, the account-to-template mapping, email template content,
// and the sent-token registry, and exposes the eligible-payments search as
// a paginated cursor over a named SQL view.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/aldrienne/remit/internal/model"
)

var (
	// ErrPaymentNotFound is returned when no payment row has the given ID.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrTemplateNotFound is returned when an account has no email template
	// mapping, or a template ID has no stored content.
	ErrTemplateNotFound = errors.New("email template not found")
	// ErrSearchNotFound is returned when the configured search does not
	// name an existing view.
	ErrSearchNotFound = errors.New("saved search not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS payments (
	id             TEXT PRIMARY KEY,
	order_number   TEXT NOT NULL,
	account_id     TEXT NOT NULL,
	account_name   TEXT NOT NULL DEFAULT '',
	vendor_id      TEXT NOT NULL,
	vendor_name    TEXT NOT NULL DEFAULT '',
	order_date     TEXT NOT NULL DEFAULT '',
	posting_period TEXT NOT NULL DEFAULT '',
	vendor_email   TEXT NOT NULL DEFAULT '',
	amount         TEXT NOT NULL DEFAULT '0',
	email_sent     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS account_templates (
	account_id  TEXT PRIMARY KEY,
	template_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS email_templates (
	id      TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	body    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sent_groups (
	token   TEXT PRIMARY KEY,
	run_id  TEXT NOT NULL,
	sent_at TEXT NOT NULL
);

CREATE VIEW IF NOT EXISTS eligible_payments AS
SELECT id             AS id,
       order_number   AS tranid,
       account_id     AS account,
       account_name   AS account_text,
       vendor_id      AS entity,
       vendor_name    AS entity_text,
       order_date     AS trandate,
       posting_period AS postingperiod,
       vendor_email   AS vendoremail,
       amount         AS amount
FROM payments
WHERE email_sent = 0;
`

// Store wraps the SQLite database. One Store serves a whole run; the
// handle is safe for the notify workers' concurrent writes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and ensures the
// schema. The busy timeout covers concurrent flag writes from the notify
// workers hitting SQLite's single-writer lock.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load fetches one payment row by order ID.
func (s *Store) Load(ctx context.Context, orderID string) (model.PaymentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, account_id, account_name, vendor_id, vendor_name,
		       order_date, posting_period, vendor_email, amount, email_sent
		FROM payments WHERE id = ?`, orderID)

	var p model.PaymentRecord
	var amount string
	err := row.Scan(&p.ID, &p.OrderNumber, &p.AccountID, &p.AccountName,
		&p.VendorID, &p.VendorName, &p.OrderDate, &p.PostingPeriod,
		&p.VendorEmail, &amount, &p.EmailSent)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PaymentRecord{}, fmt.Errorf("payment %s: %w", orderID, ErrPaymentNotFound)
	}
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("loading payment %s: %w", orderID, err)
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("payment %s has malformed amount %q: %w", orderID, amount, err)
	}
	return p, nil
}

// Save upserts a full payment row, EmailSent included. The notifier uses
// it to persist the flag after a successful send; ingest goes through
// Import, which keeps the flag.
func (s *Store) Save(ctx context.Context, p model.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_number, account_id, account_name, vendor_id,
		                      vendor_name, order_date, posting_period, vendor_email,
		                      amount, email_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			order_number   = excluded.order_number,
			account_id     = excluded.account_id,
			account_name   = excluded.account_name,
			vendor_id      = excluded.vendor_id,
			vendor_name    = excluded.vendor_name,
			order_date     = excluded.order_date,
			posting_period = excluded.posting_period,
			vendor_email   = excluded.vendor_email,
			amount         = excluded.amount,
			email_sent     = excluded.email_sent`,
		p.ID, p.OrderNumber, p.AccountID, p.AccountName, p.VendorID,
		p.VendorName, p.OrderDate, p.PostingPeriod, p.VendorEmail,
		p.Amount.String(), p.EmailSent)
	if err != nil {
		return fmt.Errorf("saving payment %s: %w", p.ID, err)
	}
	return nil
}

// Import upserts a payment row from an export, preserving the EmailSent
// flag of an existing row: an export that still lists an already-notified
// payment refreshes its fields but must not make it eligible again.
func (s *Store) Import(ctx context.Context, p model.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_number, account_id, account_name, vendor_id,
		                      vendor_name, order_date, posting_period, vendor_email,
		                      amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			order_number   = excluded.order_number,
			account_id     = excluded.account_id,
			account_name   = excluded.account_name,
			vendor_id      = excluded.vendor_id,
			vendor_name    = excluded.vendor_name,
			order_date     = excluded.order_date,
			posting_period = excluded.posting_period,
			vendor_email   = excluded.vendor_email,
			amount         = excluded.amount`,
		p.ID, p.OrderNumber, p.AccountID, p.AccountName, p.VendorID,
		p.VendorName, p.OrderDate, p.PostingPeriod, p.VendorEmail,
		p.Amount.String())
	if err != nil {
		return fmt.Errorf("importing payment %s: %w", p.ID, err)
	}
	return nil
}
