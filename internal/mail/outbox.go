package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Outbox writes each message as an .eml file instead of delivering it.
// It is the default transport: a run can be inspected, and nothing leaves
// the machine until smtp mode is switched on.
type Outbox struct {
	dir string
}

// NewOutbox builds an outbox rooted at dir. The directory is created on
// first send.
func NewOutbox(dir string) *Outbox {
	return &Outbox{dir: dir}
}

// Send encodes the message and drops it in the outbox directory. File
// names sort by send time.
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encoding message to %s: %w", msg.To, err)
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("creating outbox directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.eml", time.Now().UTC().Format("20060102T150405"), uuid.NewString())
	path := filepath.Join(o.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing outbox message: %w", err)
	}
	return nil
}
