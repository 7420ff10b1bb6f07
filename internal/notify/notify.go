// Package notify turns payment groups into vendor emails: one message per
// group, one rendered voucher per payment, flags persisted after the send.
// Every failure is scoped to its group or payment; the run never stops
// here.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/aldrienne/remit/internal/config"
	"github.com/aldrienne/remit/internal/id"
	"github.com/aldrienne/remit/internal/mail"
	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/store"
)

// Group outcome statuses.
const (
	StatusSent            = "sent"
	StatusTemplateMissing = "template-missing"
	StatusDuplicate       = "duplicate"
	StatusDeferred        = "deferred"
	StatusSendFailed      = "send-failed"
)

// TemplateResolver maps a bank account to its email template.
type TemplateResolver interface {
	FindEmailTemplate(ctx context.Context, accountID string) (string, error)
}

// TemplateMerger produces the email subject and body for one group.
type TemplateMerger interface {
	MergeTemplate(ctx context.Context, templateID string, author, recipient model.Identity) (mail.Content, error)
}

// VoucherRenderer produces one voucher artifact per payment.
type VoucherRenderer interface {
	RenderVoucher(ctx context.Context, templatePath string, p model.PaymentRecord) (model.VoucherFile, error)
}

// FileStore persists voucher artifacts for audit.
type FileStore interface {
	CreateFile(name string, data []byte, folder string) (string, error)
}

// Mailer delivers the composed message.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// PaymentStore loads stored payments and persists their notified flag.
type PaymentStore interface {
	Load(ctx context.Context, orderID string) (model.PaymentRecord, error)
	Save(ctx context.Context, p model.PaymentRecord) error
}

// SentRegistry is the idempotency guard. Tokens are recorded before the
// send, so a crashed and restarted run re-skips, never re-sends.
type SentRegistry interface {
	Seen(ctx context.Context, token string) (bool, error)
	Record(ctx context.Context, token, runID string) error
}

// GroupResult is the outcome of processing one payment group.
type GroupResult struct {
	Group          model.PaymentGroup
	TemplateID     string
	Status         string
	Attached       int             // vouchers on the sent email
	Amount         decimal.Decimal // summed amount of the group's loaded payments
	RenderFailures []string        // order IDs whose voucher was omitted
	FlagFailures   []string        // order IDs sent but not flagged
	Err            error
}

// Options wires a Generator.
type Options struct {
	Resolver TemplateResolver
	Merger   TemplateMerger
	Renderer VoucherRenderer
	Files    FileStore
	Mailer   Mailer
	Payments PaymentStore
	Registry SentRegistry
	Logger   *log.Logger

	Author          model.Identity
	VoucherTemplate string // notify.print_template
	RenderFailure   string // send-partial or defer-group
	RenderWorkers   int    // in-group render fan-out, default 4
}

// Generator processes payment groups. Safe for use from multiple notify
// workers; all state is per-call.
type Generator struct {
	opts Options
}

// NewGenerator validates nothing: configuration is checked before the
// pipeline starts.
func NewGenerator(opts Options) *Generator {
	if opts.RenderWorkers <= 0 {
		opts.RenderWorkers = 4
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Generator{opts: opts}
}

// Process runs the full notification flow for one group: resolve the
// template, check the sent registry, render and persist vouchers, merge
// and send the email, then flag every member payment.
func (g *Generator) Process(ctx context.Context, runID string, group model.PaymentGroup) GroupResult {
	res := GroupResult{Group: group, Amount: decimal.Zero}

	templateID, err := g.opts.Resolver.FindEmailTemplate(ctx, group.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrTemplateNotFound) {
			g.opts.Logger.Printf("group %s: no email template mapped for account %s, skipping", group.Key, group.AccountID)
		} else {
			g.opts.Logger.Printf("group %s: template lookup failed: %v", group.Key, err)
		}
		res.Status = StatusTemplateMissing
		res.Err = err
		return res
	}
	res.TemplateID = templateID

	token := id.SendToken(runID, group.OrderIDs)
	seen, err := g.opts.Registry.Seen(ctx, token)
	if err != nil {
		// no registry answer means no send: double delivery is worse
		// than a held email
		g.opts.Logger.Printf("group %s: sent-token check failed: %v", group.Key, err)
		res.Status = StatusSendFailed
		res.Err = err
		return res
	}
	if seen {
		g.opts.Logger.Printf("group %s: already recorded by run %s, skipping as duplicate", group.Key, runID)
		res.Status = StatusDuplicate
		return res
	}

	outcomes := g.renderAll(ctx, runID, group)

	var attachments []mail.Attachment
	loaded := make(map[string]model.PaymentRecord, len(group.OrderIDs))
	for _, out := range outcomes {
		if out.loaded {
			loaded[out.orderID] = out.payment
			res.Amount = res.Amount.Add(out.payment.Amount)
		}
		if out.err != nil {
			g.opts.Logger.Printf("group %s: voucher for payment %s failed: %v", group.Key, out.orderID, out.err)
			res.RenderFailures = append(res.RenderFailures, out.orderID)
			continue
		}
		attachments = append(attachments, mail.Attachment{
			Name:        out.file.Name,
			ContentType: out.file.ContentType,
			Data:        out.file.Data,
		})
	}

	if len(res.RenderFailures) > 0 && g.opts.RenderFailure == config.RenderFailureDeferGroup {
		g.opts.Logger.Printf("group %s: %d of %d vouchers failed, deferring whole group to next run",
			group.Key, len(res.RenderFailures), group.Size())
		res.Status = StatusDeferred
		return res
	}

	recipient := model.Identity{ID: group.VendorID, Name: group.EntityName, Email: group.VendorEmail}
	content, err := g.opts.Merger.MergeTemplate(ctx, templateID, g.opts.Author, recipient)
	if err != nil {
		g.opts.Logger.Printf("group %s: merging template %s failed: %v", group.Key, templateID, err)
		res.Status = StatusSendFailed
		res.Err = err
		return res
	}

	msg := mail.Message{
		From:        g.opts.Author.Email,
		FromName:    g.opts.Author.Name,
		To:          group.VendorEmail,
		Subject:     content.Subject,
		Body:        content.Body,
		HTML:        true,
		Attachments: attachments,
	}

	// record first: a crash after this point re-skips the group on
	// restart instead of emailing the vendor twice
	if err := g.opts.Registry.Record(ctx, token, runID); err != nil {
		g.opts.Logger.Printf("group %s: recording sent token failed: %v", group.Key, err)
		res.Status = StatusSendFailed
		res.Err = err
		return res
	}
	if err := g.opts.Mailer.Send(ctx, msg); err != nil {
		g.opts.Logger.Printf("group %s: sending to %s failed: %v", group.Key, group.VendorEmail, err)
		res.Status = StatusSendFailed
		res.Err = err
		return res
	}
	res.Status = StatusSent
	res.Attached = len(attachments)
	g.opts.Logger.Printf("group %s: sent %d voucher(s) to %s", group.Key, res.Attached, group.VendorEmail)

	for _, orderID := range group.OrderIDs {
		if err := g.flag(ctx, orderID, loaded); err != nil {
			g.opts.Logger.Printf("group %s: payment %s was sent but its flag was not persisted: %v",
				group.Key, orderID, err)
			res.FlagFailures = append(res.FlagFailures, orderID)
		}
	}
	return res
}

// flag sets EmailSent on one member payment, reusing the record loaded
// during rendering when available.
func (g *Generator) flag(ctx context.Context, orderID string, loaded map[string]model.PaymentRecord) error {
	p, ok := loaded[orderID]
	if !ok {
		var err error
		p, err = g.opts.Payments.Load(ctx, orderID)
		if err != nil {
			return err
		}
	}
	p.EmailSent = true
	return g.opts.Payments.Save(ctx, p)
}

type renderOutcome struct {
	orderID string
	payment model.PaymentRecord
	loaded  bool
	file    model.VoucherFile
	err     error
}

// renderAll loads and renders every member payment with bounded fan-out.
// Outcomes keep the group's payment order regardless of which worker
// finished first.
func (g *Generator) renderAll(ctx context.Context, runID string, group model.PaymentGroup) []renderOutcome {
	outcomes := make([]renderOutcome, len(group.OrderIDs))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(g.opts.RenderWorkers, len(group.OrderIDs))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = g.renderOne(ctx, runID, group.OrderIDs[i])
			}
		}()
	}
	for i := range group.OrderIDs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// renderOne loads a payment, renders its voucher, and persists the
// artifact. Any failure omits the voucher; the send-partial or
// defer-group policy decides the group's fate afterwards.
func (g *Generator) renderOne(ctx context.Context, runID, orderID string) renderOutcome {
	out := renderOutcome{orderID: orderID}

	p, err := g.opts.Payments.Load(ctx, orderID)
	if err != nil {
		out.err = fmt.Errorf("loading payment: %w", err)
		return out
	}
	out.payment = p
	out.loaded = true

	file, err := g.opts.Renderer.RenderVoucher(ctx, g.opts.VoucherTemplate, p)
	if err != nil {
		out.err = err
		return out
	}
	if _, err := g.opts.Files.CreateFile(file.Name, file.Data, runID); err != nil {
		out.err = fmt.Errorf("storing voucher: %w", err)
		return out
	}
	out.file = file
	return out
}
