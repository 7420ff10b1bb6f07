package store

import (
	"context"
	"fmt"
	"time"
)

// Seen reports whether a group's send token was already recorded by this
// run or an earlier one.
func (s *Store) Seen(ctx context.Context, token string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_groups WHERE token = ?`, token).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking sent token: %w", err)
	}
	return n > 0, nil
}

// Record stores a send token. It is written before the email goes out, so
// a crash between record and send loses at most the email, never sends it
// twice.
func (s *Store) Record(ctx context.Context, token, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_groups (token, run_id, sent_at) VALUES (?, ?, ?)`,
		token, runID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording sent token: %w", err)
	}
	return nil
}
