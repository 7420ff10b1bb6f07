package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aldrienne/remit/internal/model"
)

// DefaultSearchID names the view the schema ships with: every imported
// payment whose email_sent flag is still clear.
const DefaultSearchID = "eligible_payments"

// view names come from configuration and are interpolated into SQL, so
// they are held to plain identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunSearch validates that searchID names an existing view, snapshots the
// row count, and returns a cursor over its rows in pageSize chunks.
func (s *Store) RunSearch(ctx context.Context, searchID string, pageSize int) (*SearchCursor, error) {
	if !identPattern.MatchString(searchID) {
		return nil, fmt.Errorf("search id %q is not a valid identifier", searchID)
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = ?`, searchID).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("checking search %q: %w", searchID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("search %q: %w", searchID, ErrSearchNotFound)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+searchID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting search %q: %w", searchID, err)
	}

	return &SearchCursor{store: s, view: searchID, pageSize: pageSize, count: count}, nil
}

// SearchCursor pages through one search result. Count is fixed at
// RunSearch time; rows deleted or flagged mid-run surface as short pages,
// never as errors.
type SearchCursor struct {
	store    *Store
	view     string
	pageSize int
	count    int
	offset   int
}

// Count returns the row count snapshotted when the search was opened.
func (c *SearchCursor) Count() int { return c.count }

// Next returns the next page, nil when the search is exhausted. Row order
// is fixed by ID so pages never overlap.
func (c *SearchCursor) Next(ctx context.Context) ([]model.RawPaymentRecord, error) {
	rows, err := c.store.db.QueryContext(ctx,
		`SELECT * FROM `+c.view+` ORDER BY id LIMIT ? OFFSET ?`, c.pageSize, c.offset)
	if err != nil {
		return nil, fmt.Errorf("reading search %q page at %d: %w", c.view, c.offset, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading search %q columns: %w", c.view, err)
	}

	var page []model.RawPaymentRecord
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning search %q row: %w", c.view, err)
		}
		page = append(page, recordFromRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search %q: %w", c.view, err)
	}
	if len(page) == 0 {
		return nil, nil
	}
	c.offset += len(page)
	return page, nil
}

// Close releases the cursor. Pages are read eagerly, so there is nothing
// to release; Close exists for the source contract.
func (c *SearchCursor) Close() error { return nil }

// recordFromRow converts one scanned row to the raw map shape the
// normalizer consumes. A column pair X / X_text folds into a
// {value, text} map under X, matching how richer export paths carry
// both an internal ID and a display label.
func recordFromRow(cols []string, values []any) model.RawPaymentRecord {
	rec := model.RawPaymentRecord{}
	for i, col := range cols {
		if strings.HasSuffix(col, "_text") {
			continue
		}
		v := scanned(values[i])
		if v == nil {
			continue
		}
		rec[col] = v
	}
	for i, col := range cols {
		base, ok := strings.CutSuffix(col, "_text")
		if !ok {
			continue
		}
		value, present := rec[base]
		if !present {
			continue
		}
		text := scanned(values[i])
		if text == nil || text == "" {
			continue
		}
		rec[base] = map[string]any{"value": value, "text": text}
	}
	return rec
}

// scanned unwraps driver values: []byte to string, NULL to nil.
func scanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
