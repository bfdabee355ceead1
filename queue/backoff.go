package queue

import (
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// Default exponential backoff ladder when an action's retry_policy leaves
// initial/max delay unset: 2s, 4s, 8s, 16s, capped at 60s (spec.md §4.6).
const (
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 60 * time.Second
)

// computeBackoff returns the delay before the (retryCount+1)-th attempt,
// grounded on the teacher's exponential-backoff-with-cap math
// (runtime/a2a/retry.calculateBackoff), minus jitter: the spec's formula
// is exact (initial * 2^(retry_count-1), capped), so no jitter is added.
func computeBackoff(retryCount int, policy domain.RetryPolicy) time.Duration {
	initial := policy.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if retryCount < 1 {
		retryCount = 1
	}
	delay := initial
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
