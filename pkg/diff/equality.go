// Package diff implements structural equality, comparison and
// minimal-mutation diffing over augmented JSON values (spec.md §4.2).
package diff

import (
	"bytes"
	"math/big"
	"time"

	"github.com/acebase-go/acebase-core/pkg/values"
)

// ValuesAreEqual reports structural equality over augmented JSON.
// Scalars use strict equality; Dates compare by epoch ms;
// PathReferences by path string; binary buffers by byte contents;
// arrays elementwise; objects by identical key set and pairwise equal
// values.
func ValuesAreEqual(a, b any) bool {
	if values.IsVoid(a) && values.IsVoid(b) {
		return true
	}
	if values.IsVoid(a) != values.IsVoid(b) {
		return false
	}

	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.UnixMilli() == bv.UnixMilli()
	case values.PathReference:
		bv, ok := b.(values.PathReference)
		return ok && av.Path == bv.Path
	case values.Binary:
		bv, ok := b.(values.Binary)
		return ok && bytes.Equal([]byte(av), []byte(bv))
	case values.Regexp:
		bv, ok := b.(values.Regexp)
		return ok && av.Source == bv.Source && av.Flags == bv.Flags
	case *big.Int:
		bv, ok := b.(*big.Int)
		return ok && av.Cmp(bv) == 0
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesAreEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case values.PartialArray:
		bv, ok := b.(values.PartialArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i, v := range av {
			bvv, present := bv[i]
			if !present || !ValuesAreEqual(v, bvv) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return false
		}
		return mapsEqual(av, bv)
	default:
		return a == b
	}
}

// mapsEqual compares two object maps, ignoring keys that are void on
// both sides (present-but-nil vs absent are treated the same).
func mapsEqual(a, b map[string]any) bool {
	keys := map[string]bool{}
	for k, v := range a {
		if !values.IsVoid(v) {
			keys[k] = true
		}
	}
	for k, v := range b {
		if !values.IsVoid(v) {
			keys[k] = true
		}
	}
	for k := range keys {
		if !ValuesAreEqual(a[k], b[k]) {
			return false
		}
	}
	return true
}
