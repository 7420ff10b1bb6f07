package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aldrienne/remit/internal/model"
)

// FindEmailTemplate resolves an account to its email template ID.
// Accounts without a mapping get ErrTemplateNotFound; the caller skips
// that group and the run continues.
func (s *Store) FindEmailTemplate(ctx context.Context, accountID string) (string, error) {
	var templateID string
	err := s.db.QueryRowContext(ctx,
		`SELECT template_id FROM account_templates WHERE account_id = ?`, accountID).Scan(&templateID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("account %s has no template mapping: %w", accountID, ErrTemplateNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving template for account %s: %w", accountID, err)
	}
	return templateID, nil
}

// MapAccountTemplate binds an account to an email template, replacing any
// existing mapping.
func (s *Store) MapAccountTemplate(ctx context.Context, accountID, templateID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_templates (account_id, template_id) VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET template_id = excluded.template_id`,
		accountID, templateID)
	if err != nil {
		return fmt.Errorf("mapping account %s to template %s: %w", accountID, templateID, err)
	}
	return nil
}

// LoadEmailTemplate fetches stored template content by ID.
func (s *Store) LoadEmailTemplate(ctx context.Context, templateID string) (model.EmailTemplate, error) {
	var tpl model.EmailTemplate
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subject, body FROM email_templates WHERE id = ?`, templateID).
		Scan(&tpl.ID, &tpl.Subject, &tpl.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EmailTemplate{}, fmt.Errorf("template %s: %w", templateID, ErrTemplateNotFound)
	}
	if err != nil {
		return model.EmailTemplate{}, fmt.Errorf("loading template %s: %w", templateID, err)
	}
	return tpl, nil
}

// SaveEmailTemplate upserts template content.
func (s *Store) SaveEmailTemplate(ctx context.Context, tpl model.EmailTemplate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, subject, body) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET subject = excluded.subject, body = excluded.body`,
		tpl.ID, tpl.Subject, tpl.Body)
	if err != nil {
		return fmt.Errorf("saving template %s: %w", tpl.ID, err)
	}
	return nil
}
