package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldrienne/remit/internal/model"
)

// Vendor-payment export CSV layout. The export carries both internal IDs
// and display names for account and vendor.
const (
	exportDateFormat = "1/2/2006"
	exportNumFields  = 10

	exportColID          = 0
	exportColOrderNumber = 1
	exportColAccount     = 2
	exportColAccountName = 3
	exportColVendor      = 4
	exportColVendorName  = 5
	exportColDate        = 6
	exportColPeriod      = 7
	exportColEmail       = 8
	exportColAmount      = 9
)

// ParseExport reads a vendor-payment export CSV and returns payment rows
// ready for the store. The first row is the header. A malformed row fails
// the whole file; exports are fixed at the source, never half-ingested.
func ParseExport(r io.Reader) ([]model.PaymentRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = exportNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading payment export: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var payments []model.PaymentRecord
	for i, rec := range records[1:] {
		p, err := parseExportRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func parseExportRow(rec []string) (model.PaymentRecord, error) {
	date, err := time.Parse(exportDateFormat, rec[exportColDate])
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("parsing date %q: %w", rec[exportColDate], err)
	}

	amount, err := decimal.NewFromString(cleanAmount(rec[exportColAmount]))
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("parsing amount %q: %w", rec[exportColAmount], err)
	}

	return model.PaymentRecord{
		ID:            rec[exportColID],
		OrderNumber:   rec[exportColOrderNumber],
		AccountID:     rec[exportColAccount],
		AccountName:   rec[exportColAccountName],
		VendorID:      rec[exportColVendor],
		VendorName:    rec[exportColVendorName],
		OrderDate:     date.Format("2006-01-02"),
		PostingPeriod: rec[exportColPeriod],
		VendorEmail:   strings.TrimSpace(rec[exportColEmail]),
		Amount:        amount,
	}, nil
}

// cleanAmount strips the currency dressing some export paths add.
func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return s
}
