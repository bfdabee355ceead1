// Package resolver implements the Action Resolver (spec.md §4.2): fuzzy
// lookup mapping candidate intent names to Action Registry entries via
// exact match, then edit-distance ratio, then synonym membership.
package resolver

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
)

// FuzzyThreshold is the minimum normalized similarity ratio (of 1.0) for a
// fuzzy match to count (spec.md B1: exactly 0.80 matches, 0.79 does not).
const FuzzyThreshold = 0.80

// Resolve maps up to three candidate names (in caller preference order) to
// a Snapshot entry. Per spec.md §4.2's "iterating outer candidate loop
// before inner category loop", the outer loop is over candidates: for each
// candidate in turn, exact match is tried, then fuzzy, then synonym, and
// the first category to match for that candidate wins — so a fuzzy match
// on the first candidate takes priority over an exact match on the second.
func Resolve(snap *actionregistry.Snapshot, candidates []string) (*actionregistry.Definition, domain.MatchType) {
	for _, c := range candidates {
		if d, ok := matchExact(snap, c); ok {
			return d, domain.MatchExact
		}
		if d, ok := matchFuzzy(snap, c); ok {
			return d, domain.MatchFuzzy
		}
		if d, ok := matchSynonym(snap, c); ok {
			return d, domain.MatchSynonym
		}
	}
	return nil, domain.MatchNotFound
}

func matchExact(snap *actionregistry.Snapshot, candidate string) (*actionregistry.Definition, bool) {
	lc := strings.ToLower(candidate)
	for _, d := range snap.All() {
		if strings.ToLower(d.CanonicalName) == lc {
			return d, true
		}
	}
	return nil, false
}

// matchFuzzy finds the best-ratio definition above FuzzyThreshold for a
// single candidate. Ties are broken by higher ratio, then by registry
// insertion order (snap.All() is already in insertion order).
func matchFuzzy(snap *actionregistry.Snapshot, candidate string) (*actionregistry.Definition, bool) {
	lc := strings.ToLower(candidate)
	var best *actionregistry.Definition
	bestRatio := -1.0
	for _, d := range snap.All() {
		ratio := similarityRatio(lc, strings.ToLower(d.CanonicalName))
		if ratio >= FuzzyThreshold && ratio > bestRatio {
			bestRatio = ratio
			best = d
		}
	}
	return best, best != nil
}

func matchSynonym(snap *actionregistry.Snapshot, candidate string) (*actionregistry.Definition, bool) {
	lc := strings.ToLower(candidate)
	for _, d := range snap.All() {
		for _, syn := range d.Synonyms {
			if strings.ToLower(syn) == lc {
				return d, true
			}
		}
	}
	return nil, false
}

// similarityRatio returns a normalized Levenshtein similarity in [0,1]:
// 1 - (edit_distance / max(len(a), len(b))). Two empty strings are
// considered identical (ratio 1.0).
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}
