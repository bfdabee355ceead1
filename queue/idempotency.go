package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// computeIdempotencyKey derives a stable key from the session, action, and
// the collected parameter values so the same logical request always maps
// to the same key (I2), regardless of map iteration order.
func computeIdempotencyKey(sessionID, actionID string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", sessionID, actionID)
	for _, k := range names {
		fmt.Fprintf(h, "|%s=%v", k, params[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
