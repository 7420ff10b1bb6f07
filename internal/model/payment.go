package model

import (
	"github.com/shopspring/decimal"
)

// Field keys for raw search rows. Export paths differ in casing and wrapping,
// so keys are matched lowercase after normalization.
const (
	FieldID            = "id"
	FieldTranID        = "tranid"
	FieldAccount       = "account"
	FieldEntity        = "entity"
	FieldTranDate      = "trandate"
	FieldPostingPeriod = "postingperiod"
	FieldVendorEmail   = "vendoremail"
	FieldAmount        = "amount"
)

// RawPaymentRecord is one row from an eligible-payments search result.
// Values are loosely typed: a field may arrive as a scalar or as a
// {value, text} pair depending on the export path. Rows are read-only;
// the normalizer is the only consumer.
type RawPaymentRecord map[string]any

// PaymentOrder is the canonical normalized payment. Every field except
// PostingPeriod is guaranteed non-empty by the normalizer.
type PaymentOrder struct {
	OrderID       string // unique transaction identifier
	GroupKey      string // accountID + "_" + vendorID
	OrderDate     string
	PostingPeriod string
	OrderNumber   string // document number
	EntityName    string
	VendorEmail   string
}

// PaymentGroup batches the payments of one (bank account, vendor) pair into
// a single notification email. Membership is closed once grouping completes.
type PaymentGroup struct {
	Key         string
	AccountID   string
	VendorID    string
	EntityName  string // from the first member
	VendorEmail string // from the first member
	OrderIDs    []string
}

// Size returns the number of payments in the group.
func (g PaymentGroup) Size() int { return len(g.OrderIDs) }

// BucketEntry is one record carried by a side channel (skipped or errored)
// past voucher generation, straight to the end-of-run report.
type BucketEntry struct {
	RecordID    string
	OrderNumber string
	EntityName  string
	AccountID   string
	VendorID    string
	ErrorNote   string
}

// PaymentRecord is the stored payment row the record store loads and saves.
// EmailSent is the persisted notified flag, set only after a successful send
// for the payment's group.
type PaymentRecord struct {
	ID            string
	OrderNumber   string
	AccountID     string
	AccountName   string
	VendorID      string
	VendorName    string
	OrderDate     string
	PostingPeriod string
	VendorEmail   string
	Amount        decimal.Decimal
	EmailSent     bool
}

// Identity names an email author or recipient.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// VoucherFile is one rendered remittance voucher, tied 1:1 to a payment.
// It exists only for the lifetime of its group's processing: rendered,
// persisted, attached, released.
type VoucherFile struct {
	OrderID     string
	Name        string
	ContentType string
	Data        []byte
}
