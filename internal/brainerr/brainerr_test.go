package brainerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/internal/brainerr"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("socket timeout")
	err := brainerr.Wrap(brainerr.KindExternalTransient, "schema_fetch_timeout", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "external_transient")
	assert.Contains(t, err.Error(), "schema_fetch_timeout")
}

func TestKindOf(t *testing.T) {
	err := brainerr.New(brainerr.KindEligibility, "missing_kyc")

	kind, ok := brainerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, brainerr.KindEligibility, kind)

	_, ok = brainerr.KindOf(errors.New("plain error"))
	assert.False(t, ok)
}

func TestRetryable(t *testing.T) {
	assert.True(t, brainerr.Retryable(brainerr.KindExternalTransient))
	assert.False(t, brainerr.Retryable(brainerr.KindExternalPermanent))
	assert.False(t, brainerr.Retryable(brainerr.KindValidation))
}

func TestIsMatchesByKind(t *testing.T) {
	a := brainerr.New(brainerr.KindConflict, "idempotency_collision")
	b := brainerr.New(brainerr.KindConflict, "")

	assert.True(t, errors.Is(a, b))
}
