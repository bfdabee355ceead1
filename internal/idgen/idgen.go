// Package idgen generates the opaque identifiers used by every entity in the
// Brain's data model (queue_id, execution_id, dlq_id, workflow_instance_id,
// intent_id, task_id).
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a globally unique identifier prefixed with a normalized label
// to improve observability in logs, metrics, and traces without sacrificing
// uniqueness.
func New(label string) string {
	prefix := strings.ReplaceAll(label, ".", "-")
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Opaque returns a bare UUID with no label prefix, for entities that carry
// no natural label (e.g. a raw idempotency nonce).
func Opaque() string {
	return uuid.NewString()
}
