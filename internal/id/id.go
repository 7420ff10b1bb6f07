package id

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// groupKeySep joins the account and vendor halves of a group key.
const groupKeySep = "_"

// GroupKey returns a group key like "A1_V7" for an account/vendor pair.
func GroupKey(accountID, vendorID string) string {
	return accountID + groupKeySep + vendorID
}

// ParseGroupKey splits a group key into its account and vendor halves.
// Only the first separator splits, so vendor IDs may themselves contain "_".
func ParseGroupKey(key string) (accountID, vendorID string, err error) {
	parts := strings.SplitN(key, groupKeySep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid group key format: %q", key)
	}
	return parts[0], parts[1], nil
}

// SendToken derives the idempotency token for one group within one run:
// a SHA-256 over the run ID and the sorted member order IDs. Recording the
// token before a send and checking it on re-entry keeps a scheduler-level
// retry from double-mailing a group.
func SendToken(runID string, orderIDs []string) string {
	sorted := make([]string, len(orderIDs))
	copy(sorted, orderIDs)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(runID))
	for _, id := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
