package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/store"
)

const exportHeader = "Internal ID,Document Number,Account,Account Name,Vendor,Vendor Name,Date,Posting Period,Vendor Email,Amount\n"

func TestParseExport(t *testing.T) {
	data, err := os.ReadFile("../../testdata/payment_export.csv")
	require.NoError(t, err)

	payments, err := ParseExport(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, payments, 3)

	first := payments[0]
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, "PAY-1001", first.OrderNumber)
	assert.Equal(t, "A1", first.AccountID)
	assert.Equal(t, "Operating Checking", first.AccountName)
	assert.Equal(t, "V7", first.VendorID)
	assert.Equal(t, "Acme Supply Co", first.VendorName)
	assert.Equal(t, "2026-08-15", first.OrderDate)
	assert.Equal(t, "Aug 2026", first.PostingPeriod)
	assert.Equal(t, "billing@acme.test", first.VendorEmail)
	assert.False(t, first.EmailSent)
}

func TestParseExport_AmountFormats(t *testing.T) {
	data, err := os.ReadFile("../../testdata/payment_export.csv")
	require.NoError(t, err)

	payments, err := ParseExport(strings.NewReader(string(data)))
	require.NoError(t, err)

	// Quoted "$1,234.56" and plain 200.25 both land as exact decimals.
	assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, payments[1].Amount.Equal(decimal.RequireFromString("200.25")))
}

func TestParseExport_KeepsRowsWithoutEmail(t *testing.T) {
	data, err := os.ReadFile("../../testdata/payment_export.csv")
	require.NoError(t, err)

	payments, err := ParseExport(strings.NewReader(string(data)))
	require.NoError(t, err)

	// Eligibility is decided at run time, not import time.
	assert.Equal(t, "103", payments[2].ID)
	assert.Empty(t, payments[2].VendorEmail)
}

func TestParseExport_HeaderOnly(t *testing.T) {
	payments, err := ParseExport(strings.NewReader(exportHeader))
	require.NoError(t, err)
	assert.Nil(t, payments)
}

func TestParseExport_BadDate(t *testing.T) {
	csv := exportHeader + "101,PAY-1001,A1,Operating,V7,Acme,NOTADATE,Aug 2026,billing@acme.test,100.00\n"
	_, err := ParseExport(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "parsing date")
}

func TestParseExport_BadAmount(t *testing.T) {
	csv := exportHeader + "101,PAY-1001,A1,Operating,V7,Acme,8/15/2026,Aug 2026,billing@acme.test,NOTANUMBER\n"
	_, err := ParseExport(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
}

func TestParseExport_WrongColumnCount(t *testing.T) {
	csv := exportHeader + "101,PAY-1001,A1\n"
	_, err := ParseExport(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading payment export")
}

func TestCleanAmount(t *testing.T) {
	assert.Equal(t, "1234.56", cleanAmount("$1,234.56"))
	assert.Equal(t, "200.25", cleanAmount(" 200.25 "))
	assert.Equal(t, "50", cleanAmount("50"))
}

type fakeRecordStore struct {
	saved  []model.PaymentRecord
	failOn string
}

func (s *fakeRecordStore) Import(_ context.Context, p model.PaymentRecord) error {
	if p.ID == s.failOn {
		return errors.New("disk full")
	}
	s.saved = append(s.saved, p)
	return nil
}

func TestIngest(t *testing.T) {
	st := &fakeRecordStore{}

	n, err := Ingest(context.Background(), st, "../../testdata/payment_export.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, st.saved, 3)
	assert.Equal(t, "101", st.saved[0].ID)
	assert.Equal(t, "103", st.saved[2].ID)
}

func TestIngest_StoreFailure(t *testing.T) {
	st := &fakeRecordStore{failOn: "102"}

	n, err := Ingest(context.Background(), st, "../../testdata/payment_export.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving payment 102")
	assert.Equal(t, 1, n)
}

func TestIngest_ReimportKeepsNotifiedFlag(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "remit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	// Payment 101 was notified by an earlier run.
	notified := model.PaymentRecord{
		ID:            "101",
		OrderNumber:   "PAY-1001",
		AccountID:     "A1",
		AccountName:   "Operating Checking",
		VendorID:      "V7",
		OrderDate:     "2026-08-15",
		PostingPeriod: "Aug 2026",
		VendorEmail:   "billing@acme.test",
		Amount:        decimal.RequireFromString("100.50"),
		EmailSent:     true,
	}
	require.NoError(t, st.Save(ctx, notified))

	// The next export still lists it.
	path := filepath.Join(dir, "export.csv")
	row := "101,PAY-1001,A1,Operating Checking,V7,Acme Supply Co,8/15/2026,Aug 2026,billing@acme.test,100.50\n"
	require.NoError(t, os.WriteFile(path, []byte(exportHeader+row), 0o644))

	n, err := Ingest(ctx, st, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.Load(ctx, "101")
	require.NoError(t, err)
	assert.True(t, got.EmailSent, "notified flag survives a re-import")
	assert.Equal(t, "Acme Supply Co", got.VendorName)

	cur, err := st.RunSearch(ctx, store.DefaultSearchID, 10)
	require.NoError(t, err)
	defer cur.Close()
	assert.Equal(t, 0, cur.Count())
}

func TestIngest_MissingFile(t *testing.T) {
	_, err := Ingest(context.Background(), &fakeRecordStore{}, filepath.Join(t.TempDir(), "ghost.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening export")
}

func TestIngest_BadExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportHeader+"101,PAY-1001,A1\n"), 0o644))

	_, err := Ingest(context.Background(), &fakeRecordStore{}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing export broken.csv")
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "july.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "notes.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "july.csv", files[0].Name)
	assert.Equal(t, filepath.Join(importDir, "july.csv"), files[0].Path)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	processedDir := filepath.Join(importDir, "processed")
	require.NoError(t, os.MkdirAll(processedDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processedDir, "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_EmptyDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "july.csv"), []byte("data"), 0o644))

	err := MarkProcessed(dir, "july.csv")
	require.NoError(t, err)

	// Source gone.
	_, err = os.Stat(filepath.Join(importDir, "july.csv"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "july.csv"))
	assert.NoError(t, err)
}

func TestMarkProcessed_MissingFile(t *testing.T) {
	err := MarkProcessed(t.TempDir(), "ghost.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moving ghost.csv")
}
