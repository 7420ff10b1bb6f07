package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldrienne/remit/internal/model"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voucher.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testPayment() model.PaymentRecord {
	return model.PaymentRecord{
		ID:            "101",
		OrderNumber:   "PAY-1001",
		AccountName:   "Operating Checking",
		VendorName:    "Acme Supply Co",
		OrderDate:     "2026-08-15",
		PostingPeriod: "Aug 2026",
		Amount:        decimal.RequireFromString("1234.56"),
	}
}

func TestRenderVoucher(t *testing.T) {
	path := writeTemplate(t,
		`<h1>{{.OrderNumber}}</h1><p>{{.VendorName}}: {{.Amount}} on {{.OrderDate}}</p>`)

	file, err := NewVoucher().RenderVoucher(context.Background(), path, testPayment())
	require.NoError(t, err)

	assert.Equal(t, "101", file.OrderID)
	assert.Equal(t, "voucher-PAY-1001.html", file.Name)
	assert.Equal(t, "text/html", file.ContentType)
	html := string(file.Data)
	assert.Contains(t, html, "PAY-1001")
	assert.Contains(t, html, "Acme Supply Co")
	assert.Contains(t, html, "1234.56")
}

func TestRenderVoucherMissingTemplate(t *testing.T) {
	_, err := NewVoucher().RenderVoucher(context.Background(),
		filepath.Join(t.TempDir(), "absent.html"), testPayment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading voucher template")
}

func TestRenderVoucherBadTemplate(t *testing.T) {
	path := writeTemplate(t, `{{.OrderNumber`)
	_, err := NewVoucher().RenderVoucher(context.Background(), path, testPayment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing voucher template")
}

func TestRenderVoucherUnknownField(t *testing.T) {
	path := writeTemplate(t, `{{.NoSuchField}}`)
	_, err := NewVoucher().RenderVoucher(context.Background(), path, testPayment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering voucher for payment 101")
}

func TestRenderVoucherCachesParsedTemplate(t *testing.T) {
	path := writeTemplate(t, `first {{.OrderNumber}}`)
	v := NewVoucher()

	file, err := v.RenderVoucher(context.Background(), path, testPayment())
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "first")

	// the parse is per path, so an edit mid-run does not change output
	require.NoError(t, os.WriteFile(path, []byte(`second {{.OrderNumber}}`), 0o644))
	file, err = v.RenderVoucher(context.Background(), path, testPayment())
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "first")
}
