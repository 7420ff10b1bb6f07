package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aldrienne/remit/internal/model"
)

// HTMLRenderer produces the HTML artifact the converter consumes.
type HTMLRenderer interface {
	RenderVoucher(ctx context.Context, templatePath string, p model.PaymentRecord) (model.VoucherFile, error)
}

// PDFConverter decorates a renderer with an external HTML-to-PDF binary.
// The converter command reads HTML on stdin and writes PDF to stdout
// (for wkhtmltopdf that is `wkhtmltopdf -q - -`); the full command line
// comes from vouchers.pdf_converter.
type PDFConverter struct {
	bin  string
	args []string
	html HTMLRenderer
}

// NewPDFConverter splits the converter command line and wraps html.
func NewPDFConverter(command string, html HTMLRenderer) *PDFConverter {
	parts := strings.Fields(command)
	conv := &PDFConverter{html: html}
	if len(parts) > 0 {
		conv.bin = parts[0]
		conv.args = parts[1:]
	}
	return conv
}

// RenderVoucher renders the HTML voucher, then pipes it through the
// converter. A converter failure is a render failure for that payment;
// the group policy decides what happens next.
func (c *PDFConverter) RenderVoucher(ctx context.Context, templatePath string, p model.PaymentRecord) (model.VoucherFile, error) {
	file, err := c.html.RenderVoucher(ctx, templatePath, p)
	if err != nil {
		return model.VoucherFile{}, err
	}

	cmd := exec.CommandContext(ctx, c.bin, c.args...)
	cmd.Stdin = bytes.NewReader(file.Data)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return model.VoucherFile{}, fmt.Errorf("converting voucher %s: %s: %w",
			file.Name, strings.TrimSpace(stderr.String()), err)
	}

	file.Name = strings.TrimSuffix(file.Name, ".html") + ".pdf"
	file.ContentType = "application/pdf"
	file.Data = out.Bytes()
	return file, nil
}
