package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aldrienne/remit/internal/id"
	"github.com/aldrienne/remit/internal/model"
)

// Kind tags the outcome of normalizing one raw record.
type Kind int

const (
	// KindValid carries a canonical PaymentOrder.
	KindValid Kind = iota
	// KindSkipped carries a record rejected for missing required fields.
	KindSkipped
	// KindErrored carries a record that could not be read at all.
	KindErrored
)

// Result is the tagged output of the map stage. Exactly one of Order or
// Entry is meaningful, selected by Kind.
type Result struct {
	Kind  Kind
	Order model.PaymentOrder
	Entry model.BucketEntry
}

// Valid wraps a canonical order.
func Valid(order model.PaymentOrder) Result {
	return Result{Kind: KindValid, Order: order}
}

// Skipped wraps a validation rejection.
func Skipped(entry model.BucketEntry) Result {
	return Result{Kind: KindSkipped, Entry: entry}
}

// Errored wraps a record that failed structurally.
func Errored(entry model.BucketEntry) Result {
	return Result{Kind: KindErrored, Entry: entry}
}

// requiredChecks lists the required raw fields in check order. All missing
// fields are collected so the rejection note names every problem at once.
var requiredChecks = []struct {
	key  string
	name string
}{
	{model.FieldAccount, "account"},
	{model.FieldEntity, "vendor"},
	{model.FieldTranDate, "transaction date"},
	{model.FieldTranID, "transaction id"},
	{model.FieldVendorEmail, "vendor email"},
}

// Normalize validates and reshapes one raw search row into a PaymentOrder,
// or routes it to a side channel: missing required fields reject the record
// (skipped), a row without identity or with an unreadable value errors it.
// Pure and deterministic; safe to re-run on the same input.
func Normalize(raw model.RawPaymentRecord) Result {
	recordID, _, err := scalarField(raw, model.FieldID)
	if err != nil {
		return Errored(model.BucketEntry{ErrorNote: fmt.Sprintf("reading record identity: %v", err)})
	}
	if recordID == "" {
		return Errored(model.BucketEntry{ErrorNote: "record has no identity field"})
	}

	values := make(map[string]string)
	texts := make(map[string]string)
	for _, key := range []string{
		model.FieldAccount, model.FieldEntity, model.FieldTranDate,
		model.FieldTranID, model.FieldPostingPeriod, model.FieldVendorEmail,
	} {
		value, text, err := scalarField(raw, key)
		if err != nil {
			entry := bucketEntry(recordID, values, texts)
			entry.ErrorNote = fmt.Sprintf("reading field %q: %v", key, err)
			return Errored(entry)
		}
		values[key] = value
		texts[key] = text
	}

	var missing []string
	for _, chk := range requiredChecks {
		if values[chk.key] == "" {
			missing = append(missing, chk.name)
		}
	}
	if len(missing) > 0 {
		entry := bucketEntry(recordID, values, texts)
		entry.ErrorNote = "missing required field(s): " + strings.Join(missing, ", ")
		return Skipped(entry)
	}

	return Valid(model.PaymentOrder{
		OrderID:       recordID,
		GroupKey:      id.GroupKey(values[model.FieldAccount], values[model.FieldEntity]),
		OrderDate:     values[model.FieldTranDate],
		PostingPeriod: display(values, texts, model.FieldPostingPeriod),
		OrderNumber:   values[model.FieldTranID],
		EntityName:    display(values, texts, model.FieldEntity),
		VendorEmail:   values[model.FieldVendorEmail],
	})
}

// bucketEntry fills a side-channel entry from whatever fields were readable.
func bucketEntry(recordID string, values, texts map[string]string) model.BucketEntry {
	return model.BucketEntry{
		RecordID:    recordID,
		OrderNumber: values[model.FieldTranID],
		EntityName:  display(values, texts, model.FieldEntity),
		AccountID:   values[model.FieldAccount],
		VendorID:    values[model.FieldEntity],
	}
}

// display prefers the text half of a value/text pair, falling back to the value.
func display(values, texts map[string]string, key string) string {
	if texts[key] != "" {
		return texts[key]
	}
	return values[key]
}

// scalarField coerces a loosely typed raw field. Scalars return as the value;
// {value, text} pairs return both halves. Absent fields are empty, not errors;
// required-ness is the caller's concern.
func scalarField(raw model.RawPaymentRecord, key string) (value, text string, err error) {
	v, ok := raw[key]
	if !ok {
		return "", "", nil
	}
	switch t := v.(type) {
	case nil:
		return "", "", nil
	case map[string]any:
		value, err = scalar(t["value"])
		if err != nil {
			return "", "", fmt.Errorf("field %q value: %w", key, err)
		}
		text, err = scalar(t["text"])
		if err != nil {
			return "", "", fmt.Errorf("field %q text: %w", key, err)
		}
		return value, text, nil
	default:
		value, err = scalar(v)
		if err != nil {
			return "", "", fmt.Errorf("field %q: %w", key, err)
		}
		return value, "", nil
	}
}

// scalar renders a single loosely typed scalar as a string.
func scalar(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		return "", fmt.Errorf("unexpected %T value", v)
	}
}
