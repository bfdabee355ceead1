package resolver_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/resolver"
)

// mutated returns a copy of a 100-rune string of 'a's with the first n
// positions replaced by 'b', giving an edit distance of exactly n against
// the original (so a ratio of exactly 1 - n/100 against a 100-'a' target).
func mutated(n int) string {
	r := []rune(strings.Repeat("a", 100))
	for i := 0; i < n; i++ {
		r[i] = 'b'
	}
	return string(r)
}

func snapshot(defs ...*actionregistry.Definition) *actionregistry.Snapshot {
	for _, d := range defs {
		d.IsActive = true
	}
	return actionregistry.NewSnapshot("brandA", "inst1", defs)
}

func TestResolveExactMatch(t *testing.T) {
	snap := snapshot(&actionregistry.Definition{ActionID: "a1", CanonicalName: "Check Balance"})
	def, mt := resolver.Resolve(snap, []string{"check balance"})
	assert.Equal(t, domain.MatchExact, mt)
	assert.Equal(t, "a1", def.ActionID)
}

func TestResolveSynonymMatch(t *testing.T) {
	snap := snapshot(&actionregistry.Definition{
		ActionID: "a1", CanonicalName: "check balance", Synonyms: []string{"show me my money"},
	})
	def, mt := resolver.Resolve(snap, []string{"show me my money"})
	assert.Equal(t, domain.MatchSynonym, mt)
	assert.Equal(t, "a1", def.ActionID)
}

func TestResolveNotFound(t *testing.T) {
	snap := snapshot(&actionregistry.Definition{ActionID: "a1", CanonicalName: "check balance"})
	def, mt := resolver.Resolve(snap, []string{"completely unrelated phrase"})
	assert.Nil(t, def)
	assert.Equal(t, domain.MatchNotFound, mt)
}

func TestResolveBoundaryThresholdExactly080Matches(t *testing.T) {
	snap := snapshot(&actionregistry.Definition{ActionID: "a1", CanonicalName: strings.Repeat("a", 100)})
	def, mt := resolver.Resolve(snap, []string{mutated(20)}) // ratio = 1 - 20/100 = 0.80
	assert.Equal(t, domain.MatchFuzzy, mt)
	assert.Equal(t, "a1", def.ActionID)
}

func TestResolveBoundaryThreshold079DoesNotMatch(t *testing.T) {
	snap := snapshot(&actionregistry.Definition{ActionID: "a1", CanonicalName: strings.Repeat("a", 100)})
	def, mt := resolver.Resolve(snap, []string{mutated(21)}) // ratio = 1 - 21/100 = 0.79
	assert.Nil(t, def)
	assert.Equal(t, domain.MatchNotFound, mt)
}

func TestResolveExactMatchWinsForFirstCandidate(t *testing.T) {
	snap := snapshot(
		&actionregistry.Definition{ActionID: "a1", CanonicalName: "check balance"},
		&actionregistry.Definition{ActionID: "a2", CanonicalName: "chek balance"},
	)
	// exact match wins immediately for the first candidate.
	def, mt := resolver.Resolve(snap, []string{"check balance", "chek balance"})
	assert.Equal(t, domain.MatchExact, mt)
	assert.Equal(t, "a1", def.ActionID)
}

func TestResolveCandidateOrderOuterLoop(t *testing.T) {
	// First candidate fuzzy-matches a1; second candidate exact-matches a2.
	// The outer-candidate-loop rule means the first candidate's fuzzy match
	// wins even though the second candidate has an exact match available.
	snap := snapshot(
		&actionregistry.Definition{ActionID: "a1", CanonicalName: "chek balance"},
		&actionregistry.Definition{ActionID: "a2", CanonicalName: "transfer funds"},
	)
	def, mt := resolver.Resolve(snap, []string{"check balance", "transfer funds"})
	assert.Equal(t, domain.MatchFuzzy, mt)
	assert.Equal(t, "a1", def.ActionID)
}
