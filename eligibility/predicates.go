package eligibility

// PredicateTable is the fixed, named set of blocker predicates an action
// definition's blockers list references by name (spec.md §4.5 step 4).
// Callers register the predicates their domain actually needs; a name with
// no registered predicate is treated as blocking (fail closed).
type PredicateTable map[string]Predicate

// NewPredicateTable constructs an empty table. Register predicates with Set.
func NewPredicateTable() PredicateTable {
	return make(PredicateTable)
}

// Set registers a predicate under name, overwriting any prior registration.
func (t PredicateTable) Set(name string, p Predicate) {
	t[name] = p
}
