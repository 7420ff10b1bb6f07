// Package importer ingests vendor-payment export CSVs from the import
// drop folder into the payment store.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aldrienne/remit/internal/model"
)

// importDir is the drop folder for export CSVs.
const importDir = "import"

// processedDir is where ingested exports are moved.
const processedDir = "import/processed"

// RecordStore persists parsed payment rows. Import must keep the notified
// flag of a row that already exists; exports routinely overlap with
// payments notified by an earlier run.
type RecordStore interface {
	Import(ctx context.Context, p model.PaymentRecord) error
}

// FileInfo describes an export file waiting in the drop folder.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the export CSVs waiting in <workdir>/import/.
func Scan(workdir string) ([]FileInfo, error) {
	dir := filepath.Join(workdir, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// Ingest parses one export file and saves every row. It returns the number
// of rows saved; on a store failure the count covers the rows already saved.
func Ingest(ctx context.Context, store RecordStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening export %s: %w", path, err)
	}
	defer f.Close()

	payments, err := ParseExport(f)
	if err != nil {
		return 0, fmt.Errorf("parsing export %s: %w", filepath.Base(path), err)
	}

	for i, p := range payments {
		if err := store.Import(ctx, p); err != nil {
			return i, fmt.Errorf("saving payment %s: %w", p.ID, err)
		}
	}
	return len(payments), nil
}

// MarkProcessed moves a file from import/ to import/processed/ so the next
// scan does not pick it up again.
func MarkProcessed(workdir, fileName string) error {
	src := filepath.Join(workdir, importDir, fileName)
	dstDir := filepath.Join(workdir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
