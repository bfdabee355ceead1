// Package schemacache implements the Schema State Cache (spec.md §4.4): a
// per-session, TTL-governed cache of fetched schema data with computed
// key/schema completion statuses, stale-fallback on upstream failure, and
// single-flighted concurrent fetches. It generalizes the teacher's
// runtime/registry.MemoryCache (TTL entries, background refresh channel,
// refresh cooldown) from per-toolset keys to per-(session_id, schema_id)
// keys.
package schemacache

import (
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// KeyState is one schema key's completion state within a Schema State.
type KeyState struct {
	Status domain.KeyStatus
	Value  any
}

// State is the Schema State entity (spec.md §3): a session's cached view of
// one schema's fetched data.
type State struct {
	SessionID         string
	SchemaID          string
	FetchedAt         time.Time
	ExpiresAt         time.Time
	APIStatus         domain.SchemaAPIStatus
	Keys              map[string]KeyState
	SchemaStatus      domain.SchemaCompletionStatus
	CompletionPercent int
}

// deriveSchemaStatus computes schema_status per I4: complete iff every
// required key's status is complete.
func deriveSchemaStatus(keys map[string]KeyState, required []string) domain.SchemaCompletionStatus {
	for _, name := range required {
		if keys[name].Status != domain.KeyComplete {
			return domain.SchemaIncomplete
		}
	}
	return domain.SchemaComplete
}

// Expired reports whether the state is expired at instant now (B3: a state
// at exactly expires_at is treated as expired).
func (s *State) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
