package diff

// Mutation is a relative write: target is relative to the two values
// passed to GetMutations. val == nil denotes deletion; prev == nil
// denotes an addition.
type Mutation struct {
	Target []any
	Prev   any
	Val    any
}

// GetMutations flattens CompareValues into a mutation list. It
// descends into compatible objects/arrays in key order (object keys
// alphabetically, array/partial-array indices numerically) and emits
// one Mutation per leaf-level difference.
func GetMutations(a, b any, sortedResults bool) []Mutation {
	var out []Mutation
	walk(nil, a, b, sortedResults, &out)
	return out
}

func walk(prefix []any, a, b any, sorted bool, out *[]Mutation) {
	res := CompareValues(a, b, sorted)
	switch res.Kind {
	case Identical:
		return
	case Added:
		*out = append(*out, Mutation{Target: copyTarget(prefix), Prev: nil, Val: b})
	case Removed:
		*out = append(*out, Mutation{Target: copyTarget(prefix), Prev: a, Val: nil})
	case Changed:
		*out = append(*out, Mutation{Target: copyTarget(prefix), Prev: a, Val: b})
	case Differs:
		d := res.Differences
		for _, k := range d.AddedKeys {
			*out = append(*out, Mutation{Target: append(copyTarget(prefix), k), Prev: nil, Val: entryAt(b, k)})
		}
		for _, k := range d.RemovedKeys {
			*out = append(*out, Mutation{Target: append(copyTarget(prefix), k), Prev: entryAt(a, k), Val: nil})
		}
		for _, k := range d.ChangedKeys {
			walk(append(copyTarget(prefix), k), entryAt(a, k), entryAt(b, k), sorted, out)
		}
	}
}

func copyTarget(prefix []any) []any {
	out := make([]any, len(prefix))
	copy(out, prefix)
	return out
}

func entryAt(v any, key any) any {
	_, entries, ok := containerEntries(v)
	if !ok {
		return nil
	}
	return entries[key]
}
