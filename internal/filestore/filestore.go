// Package filestore persists rendered voucher artifacts on disk so a sent
// notification can be audited after the fact.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Disk stores voucher files under a root directory, one subdirectory per
// folder (the notify stage passes the run ID).
type Disk struct {
	root string
}

// NewDisk builds a store rooted at dir.
func NewDisk(dir string) *Disk {
	return &Disk{root: dir}
}

// CreateFile writes data under root/<folder>/<name> and returns the stored
// path. An existing file with the same name is overwritten; re-rendering a
// voucher within a run produces identical content.
func (d *Disk) CreateFile(name string, data []byte, folder string) (string, error) {
	dir := filepath.Join(d.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating voucher directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storing voucher %s: %w", name, err)
	}
	return path, nil
}
