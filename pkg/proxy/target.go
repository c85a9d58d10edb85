package proxy

// target is a relative key path into the proxy's cached value: each
// element is a string (object property) or int (array index), the
// same shape path.PathInfo.Child accepts for a key sequence.

func targetEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// targetIsAncestor reports whether a is a strict prefix of b.
func targetIsAncestor(a, b []any) bool {
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// targetSharesPrefix reports whether a and b agree on their common
// length prefix (one is on the trail of the other).
func targetSharesPrefix(a, b []any) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneTarget(t []any) []any {
	out := make([]any, len(t))
	copy(out, t)
	return out
}

func appendTarget(prefix []any, key any) []any {
	out := make([]any, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = key
	return out
}

// box holds the proxy's root value by reference, so a root-level
// write (even one that replaces a scalar or swaps an array for a map)
// can reassign the root itself rather than mutating in place.
type box struct {
	root any
}

// getAt walks the cache by target, returning nil if any segment is
// missing or of the wrong shape.
func getAt(b *box, target []any) any {
	cur := b.root
	for _, key := range target {
		switch k := key.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[k]
		case int:
			arr, ok := cur.([]any)
			if !ok || k < 0 || k >= len(arr) {
				return nil
			}
			cur = arr[k]
		default:
			return nil
		}
	}
	return cur
}

// setAt writes value at target, creating intermediate containers on
// demand (choosing map vs slice from the next key's type) and
// re-threading any reallocated slice back up to its parent.
func setAt(b *box, target []any, value any) {
	if len(target) == 0 {
		b.root = value
		return
	}
	b.root = setIn(b.root, target, value)
}

func setIn(container any, target []any, value any) any {
	key := target[0]
	rest := target[1:]
	switch k := key.(type) {
	case string:
		m, ok := container.(map[string]any)
		if !ok || m == nil {
			m = map[string]any{}
		}
		if len(rest) == 0 {
			if value == nil {
				delete(m, k)
			} else {
				m[k] = value
			}
			return m
		}
		m[k] = setIn(m[k], rest, value)
		return m
	case int:
		arr, ok := container.([]any)
		if !ok {
			arr = nil
		}
		for k >= len(arr) {
			arr = append(arr, nil)
		}
		if len(rest) == 0 {
			arr[k] = value
			return arr
		}
		arr[k] = setIn(arr[k], rest, value)
		return arr
	default:
		return container
	}
}
