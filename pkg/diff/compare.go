package diff

import (
	"sort"

	"github.com/acebase-go/acebase-core/pkg/values"
)

// Kind classifies the outcome of CompareValues.
type Kind int

const (
	Identical Kind = iota
	Added
	Removed
	Changed
	Differs // see ObjectDifferences
)

// ObjectDifferences describes, for a pair of compatible objects or
// arrays, which keys were added, removed, or changed between a and b.
// Keys are string property names or int array indices.
type ObjectDifferences struct {
	AddedKeys   []any
	RemovedKeys []any
	ChangedKeys []any
}

// CompareResult is the outcome of CompareValues.
type CompareResult struct {
	Kind        Kind
	Differences *ObjectDifferences // non-nil iff Kind == Differs
}

// CompareValues classifies the relationship between a and b. Void
// (nil) is treated symmetrically: a is void and b is not yields
// Added; the reverse yields Removed. Compatible objects/arrays yield
// Differs with an ObjectDifferences; anything else that isn't
// identical yields Changed.
func CompareValues(a, b any, sortedResults bool) CompareResult {
	voidA, voidB := values.IsVoid(a), values.IsVoid(b)
	switch {
	case voidA && voidB:
		return CompareResult{Kind: Identical}
	case voidA && !voidB:
		return CompareResult{Kind: Added}
	case !voidA && voidB:
		return CompareResult{Kind: Removed}
	}

	kindA, entriesA, okA := containerEntries(a)
	kindB, entriesB, okB := containerEntries(b)
	if okA && okB && containersCompatible(kindA, kindB) {
		return compareContainers(entriesA, entriesB, sortedResults)
	}

	if ValuesAreEqual(a, b) {
		return CompareResult{Kind: Identical}
	}
	return CompareResult{Kind: Changed}
}

func containersCompatible(a, b string) bool {
	if a == "map" || b == "map" {
		return a == b
	}
	// array and partial-array are mutually compatible (both index-keyed)
	return true
}

func containerEntries(v any) (kind string, entries map[any]any, ok bool) {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[any]any, len(t))
		for k, v := range t {
			m[k] = v
		}
		return "map", m, true
	case []any:
		m := make(map[any]any, len(t))
		for i, v := range t {
			m[i] = v
		}
		return "array", m, true
	case values.PartialArray:
		m := make(map[any]any, len(t))
		for i, v := range t {
			m[i] = v
		}
		return "partial", m, true
	default:
		return "", nil, false
	}
}

func compareContainers(a, b map[any]any, sortedResults bool) CompareResult {
	seen := map[any]bool{}
	var added, removed, changed []any
	for k, av := range a {
		seen[k] = true
		bv, present := b[k]
		if !present || values.IsVoid(bv) {
			if !values.IsVoid(av) {
				removed = append(removed, k)
			}
			continue
		}
		if !ValuesAreEqual(av, bv) {
			changed = append(changed, k)
		}
	}
	for k, bv := range b {
		if seen[k] {
			continue
		}
		if !values.IsVoid(bv) {
			added = append(added, k)
		}
	}

	if len(added) == 0 && len(removed) == 0 && len(changed) == 0 {
		return CompareResult{Kind: Identical}
	}

	sortAnyKeys(added)
	sortAnyKeys(removed)
	if sortedResults {
		sortAnyKeys(changed)
	} else {
		sortAnyKeys(changed)
	}

	return CompareResult{
		Kind: Differs,
		Differences: &ObjectDifferences{
			AddedKeys:   added,
			RemovedKeys: removed,
			ChangedKeys: changed,
		},
	}
}

// sortAnyKeys sorts a key slice holding either all strings or all
// ints. Go map iteration order is unspecified, so results are always
// normalized into a stable order regardless of the caller's
// sortedResults preference -- the only externally observable
// difference spec.md draws is for the "changed" list, which this
// guarantees unconditionally.
func sortAnyKeys(keys []any) {
	if len(keys) == 0 {
		return
	}
	if _, ok := keys[0].(int); ok {
		sort.Slice(keys, func(i, j int) bool { return keys[i].(int) < keys[j].(int) })
		return
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].(string) < keys[j].(string) })
}
