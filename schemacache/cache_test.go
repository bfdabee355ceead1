package schemacache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemacache"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
)

type stubFetcher struct {
	calls  int
	ok     bool
	values map[string]any
	err    error
}

func (f *stubFetcher) Fetch(context.Context, *schemaregistry.Definition) (bool, map[string]any, error) {
	f.calls++
	return f.ok, f.values, f.err
}

func profileDef() *schemaregistry.Definition {
	return &schemaregistry.Definition{
		SchemaID:         "profile",
		CacheTTLMS:       1000,
		StaleToleranceMS: 5000,
		Keys: []schemaregistry.KeyDefinition{
			{KeyName: "phone", Required: true, CompletionLogic: domain.CompletionNonEmpty},
		},
	}
}

func TestCacheHitServesExistingEntry(t *testing.T) {
	fetcher := &stubFetcher{ok: true, values: map[string]any{"phone": "555-1234"}}
	cache := schemacache.New(nil, fetcher, nil, nil)

	s1, err := cache.Get(context.Background(), "sess1", profileDef(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.KeyComplete, s1.Keys["phone"].Status)

	s2, err := cache.Get(context.Background(), "sess1", profileDef(), false)
	require.NoError(t, err)
	assert.Equal(t, s1.FetchedAt, s2.FetchedAt)
	assert.Equal(t, 1, fetcher.calls, "second Get within TTL must not re-fetch")
}

func TestCacheMissingRequiredKeyIsIncomplete(t *testing.T) {
	fetcher := &stubFetcher{ok: true, values: map[string]any{"phone": ""}}
	cache := schemacache.New(nil, fetcher, nil, nil)

	s, err := cache.Get(context.Background(), "sess1", profileDef(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.KeyNone, s.Keys["phone"].Status)
	assert.Equal(t, domain.SchemaIncomplete, s.SchemaStatus)
}

func TestCacheStaleFallbackOnFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{ok: true, values: map[string]any{"phone": "555-1234"}}
	cache := schemacache.New(nil, fetcher, nil, nil)

	_, err := cache.Get(context.Background(), "sess1", profileDef(), false)
	require.NoError(t, err)

	fetcher.ok = false
	fetcher.err = assertError("upstream down")
	s, err := cache.Get(context.Background(), "sess1", profileDef(), true)
	require.NoError(t, err)
	assert.Equal(t, domain.APIStatusStale, s.APIStatus)
	assert.Equal(t, domain.KeyComplete, s.Keys["phone"].Status, "stale entry retains its last good values")
}

func TestCacheSyntheticErrorStateWithNoPriorEntry(t *testing.T) {
	fetcher := &stubFetcher{ok: false, err: assertError("upstream down")}
	cache := schemacache.New(nil, fetcher, nil, nil)

	s, err := cache.Get(context.Background(), "sess1", profileDef(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.APIStatusError, s.APIStatus)
	assert.Equal(t, domain.KeyNone, s.Keys["phone"].Status)
}

func TestCacheExpiredAtExactlyExpiresAtRefetches(t *testing.T) {
	fetcher := &stubFetcher{ok: true, values: map[string]any{"phone": "555-1234"}}
	cache := schemacache.New(nil, fetcher, nil, nil)

	def := profileDef()
	def.CacheTTLMS = 0 // expires_at == fetched_at, so "now" is never before it
	_, err := cache.Get(context.Background(), "sess1", def, false)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = cache.Get(context.Background(), "sess1", def, false)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "an entry at exactly expires_at must be treated as expired (B3)")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func assertError(msg string) error { return assertErr(msg) }
