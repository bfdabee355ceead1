// Package dlq implements the Dead-Letter Store (spec.md §4.9): a write-only
// sink for actions exhausted by the Action Queue's retry policy, read and
// resolved externally for manual intervention.
package dlq

import (
	"context"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// Store persists DLQ Entries.
type Store interface {
	Insert(ctx context.Context, entry domain.DLQEntry) error
	Get(ctx context.Context, dlqID string) (domain.DLQEntry, error)
	ListUnresolved(ctx context.Context) ([]domain.DLQEntry, error)
	UpdateResolution(ctx context.Context, dlqID string, mutate func(domain.DLQEntry) (domain.DLQEntry, error)) (domain.DLQEntry, error)
}

// QueueEntryLookup retrieves a queue entry by id, satisfied by
// queue.Store.Get. Declared locally to avoid dlq importing queue.
type QueueEntryLookup interface {
	Get(ctx context.Context, queueID string) (domain.QueueEntry, error)
}

// Requeuer creates a fresh Queue Entry from an exhausted one, satisfied by
// (*queue.Queue).RequeueFromDLQ.
type Requeuer interface {
	RequeueFromDLQ(ctx context.Context, original domain.QueueEntry) (domain.QueueEntry, error)
}
