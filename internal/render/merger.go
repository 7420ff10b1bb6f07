package render

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/aldrienne/remit/internal/mail"
	"github.com/aldrienne/remit/internal/model"
)

// TemplateSource loads stored email template content.
type TemplateSource interface {
	LoadEmailTemplate(ctx context.Context, templateID string) (model.EmailTemplate, error)
}

// Merger merges stored email templates with the author and recipient
// identities into sendable content. Template text is operator-authored
// HTML; the fields available are .Author and .Recipient.
type Merger struct {
	source TemplateSource
}

// NewMerger builds a merger over source.
func NewMerger(source TemplateSource) *Merger {
	return &Merger{source: source}
}

type mergeData struct {
	Author    model.Identity
	Recipient model.Identity
}

// MergeTemplate loads the template and executes its subject and body.
func (m *Merger) MergeTemplate(ctx context.Context, templateID string, author, recipient model.Identity) (mail.Content, error) {
	tpl, err := m.source.LoadEmailTemplate(ctx, templateID)
	if err != nil {
		return mail.Content{}, err
	}
	data := mergeData{Author: author, Recipient: recipient}

	subject, err := merge(templateID+":subject", tpl.Subject, data)
	if err != nil {
		return mail.Content{}, fmt.Errorf("merging template %s subject: %w", templateID, err)
	}
	body, err := merge(templateID+":body", tpl.Body, data)
	if err != nil {
		return mail.Content{}, fmt.Errorf("merging template %s body: %w", templateID, err)
	}
	return mail.Content{Subject: strings.TrimSpace(subject), Body: body}, nil
}

func merge(name, src string, data mergeData) (string, error) {
	tpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
