package resolver_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Nikunjmattoo/bot-framework-sub000/actionregistry"
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/resolver"
)

// TestExactMatchAlwaysResolvesProperty verifies that a candidate equal
// (ignoring case) to some definition's canonical_name always resolves
// exactly, regardless of what other definitions share the registry.
func TestExactMatchAlwaysResolvesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("a candidate equal to a canonical_name resolves exactly", prop.ForAll(
		func(name string, decoys []string) bool {
			if name == "" {
				return true
			}
			defs := []*actionregistry.Definition{{ActionID: "target", CanonicalName: name, IsActive: true}}
			for i, d := range decoys {
				defs = append(defs, &actionregistry.Definition{ActionID: "decoy", CanonicalName: d + "~", IsActive: true, Synonyms: nil})
				_ = i
			}
			snap := actionregistry.NewSnapshot("b", "i", defs)

			def, mt := resolver.Resolve(snap, []string{name})
			return def != nil && def.ActionID == "target" && mt == domain.MatchExact
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestNotFoundIsReflexiveProperty verifies that an empty registry never
// resolves any candidate set.
func TestNotFoundIsReflexiveProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("an empty registry never resolves", prop.ForAll(
		func(candidates []string) bool {
			snap := actionregistry.NewSnapshot("b", "i", nil)
			def, mt := resolver.Resolve(snap, candidates)
			return def == nil && mt == domain.MatchNotFound
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
