package diff

import (
	"reflect"

	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/values"
)

// CloneObject deep-copies an augmented JSON value. Date, PathReference
// and Regexp are returned as-is since they're immutable. Binary
// buffers are copied. Cyclic references raise CyclicReferenceError.
// Cloning a DataSnapshot (anything implementing values.SnapshotMarker)
// raises InvalidCloneError.
func CloneObject(v any) (any, error) {
	return cloneValue(v, map[uintptr]bool{})
}

func cloneValue(v any, visiting map[uintptr]bool) (any, error) {
	if _, ok := v.(values.SnapshotMarker); ok {
		return nil, &acerr.InvalidCloneError{Base: acerr.Base{Op: "CloneObject"}}
	}

	switch t := v.(type) {
	case nil:
		return nil, nil
	case values.Binary:
		cp := make(values.Binary, len(t))
		copy(cp, t)
		return cp, nil
	case []any:
		ptr := reflect.ValueOf(t).Pointer()
		if visiting[ptr] {
			return nil, &acerr.CyclicReferenceError{Base: acerr.Base{Op: "CloneObject"}}
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)

		out := make([]any, len(t))
		for i, e := range t {
			cv, err := cloneValue(e, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case values.PartialArray:
		ptr := reflect.ValueOf(map[int]any(t)).Pointer()
		if visiting[ptr] {
			return nil, &acerr.CyclicReferenceError{Base: acerr.Base{Op: "CloneObject"}}
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)

		out := make(values.PartialArray, len(t))
		for k, e := range t {
			cv, err := cloneValue(e, visiting)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case map[string]any:
		ptr := reflect.ValueOf(t).Pointer()
		if visiting[ptr] {
			return nil, &acerr.CyclicReferenceError{Base: acerr.Base{Op: "CloneObject"}}
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)

		out := make(map[string]any, len(t))
		for k, e := range t {
			cv, err := cloneValue(e, visiting)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	default:
		// Scalars, time.Time, values.PathReference, values.Regexp,
		// *big.Int: immutable or value types, returned as-is.
		return v, nil
	}
}
