// Package render produces the two merged artifacts of a notification:
// per-payment voucher files and the email subject/body.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"

	"github.com/aldrienne/remit/internal/model"
)

// Voucher renders remittance voucher artifacts from an html/template
// file. The template is addressed by path and parsed once per distinct
// path; render workers share one Voucher.
type Voucher struct {
	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewVoucher builds an empty renderer.
func NewVoucher() *Voucher {
	return &Voucher{cache: map[string]*template.Template{}}
}

// RenderVoucher executes the template at templatePath with one stored
// payment and returns the artifact to attach.
func (v *Voucher) RenderVoucher(ctx context.Context, templatePath string, p model.PaymentRecord) (model.VoucherFile, error) {
	if err := ctx.Err(); err != nil {
		return model.VoucherFile{}, err
	}
	tpl, err := v.load(templatePath)
	if err != nil {
		return model.VoucherFile{}, err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		return model.VoucherFile{}, fmt.Errorf("rendering voucher for payment %s: %w", p.ID, err)
	}
	return model.VoucherFile{
		OrderID:     p.ID,
		Name:        fmt.Sprintf("voucher-%s.html", p.OrderNumber),
		ContentType: "text/html",
		Data:        buf.Bytes(),
	}, nil
}

func (v *Voucher) load(path string) (*template.Template, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if tpl, ok := v.cache[path]; ok {
		return tpl, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading voucher template: %w", err)
	}
	tpl, err := template.New(filepath.Base(path)).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing voucher template %s: %w", path, err)
	}
	v.cache[path] = tpl
	return tpl, nil
}
