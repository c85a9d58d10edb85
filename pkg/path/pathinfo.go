// Package path implements the path algebra described in spec.md §4.1:
// parsing, rendering, child/parent navigation, ancestor/descendant and
// trail comparisons, and wildcard/variable extraction and
// substitution.
package path

import (
	"strconv"
	"strings"

	"github.com/acebase-go/acebase-core/pkg/acerr"
)

// PathInfo is an immutable value type describing a path into the tree.
type PathInfo struct {
	keys []Key
}

// Root is the PathInfo for the empty path.
var Root = PathInfo{}

// Get parses a canonical path string ("a/b[3]/c") into a PathInfo.
// Leading and trailing slashes are ignored.
func Get(p string) (PathInfo, error) {
	keys, err := parseKeys("PathInfo.Get", p)
	if err != nil {
		return PathInfo{}, err
	}
	return PathInfo{keys: keys}, nil
}

// MustGet is Get, panicking on a malformed path. Intended for
// compile-time-constant paths in tests and call sites.
func MustGet(p string) PathInfo {
	pi, err := Get(p)
	if err != nil {
		panic(err)
	}
	return pi
}

// FromKeys builds a PathInfo directly from a keys sequence.
func FromKeys(keys []Key) PathInfo {
	cp := make([]Key, len(keys))
	copy(cp, keys)
	return PathInfo{keys: cp}
}

func parseKeys(op, p string) ([]Key, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, nil
	}
	segments := strings.Split(p, "/")
	var keys []Key
	for _, seg := range segments {
		segKeys, err := parseSegment(op, seg)
		if err != nil {
			return nil, err
		}
		keys = append(keys, segKeys...)
	}
	return keys, nil
}

// parseSegment parses one slash-delimited segment, which may carry a
// name followed by zero or more "[i]" index suffixes (e.g. "b[3]").
func parseSegment(op, seg string) ([]Key, error) {
	var keys []Key
	name := seg
	var indices []int
	for {
		open := strings.LastIndexByte(name, '[')
		if open == -1 || !strings.HasSuffix(name, "]") {
			break
		}
		numStr := name[open+1 : len(name)-1]
		n, err := strconv.Atoi(numStr)
		if err != nil || n < 0 {
			return nil, &acerr.PathRuleError{
				Base:   acerr.Base{Op: op},
				Key:    seg,
				Reason: "malformed array index",
			}
		}
		indices = append([]int{n}, indices...)
		name = name[:open]
	}
	if name != "" {
		if err := validateStringKey(op, name); err != nil {
			return nil, err
		}
		keys = append(keys, StringKey(name))
	}
	for _, n := range indices {
		keys = append(keys, IndexKey(n))
	}
	if len(keys) == 0 {
		return nil, &acerr.PathRuleError{
			Base:   acerr.Base{Op: op},
			Key:    seg,
			Reason: "empty path segment",
		}
	}
	return keys, nil
}

// Keys returns a copy of the parsed key sequence. The root path returns
// an empty (non-nil) slice.
func (pi PathInfo) Keys() []Key {
	cp := make([]Key, len(pi.keys))
	copy(cp, pi.keys)
	return cp
}

// IsRoot reports whether this is the root path.
func (pi PathInfo) IsRoot() bool { return len(pi.keys) == 0 }

// Key returns the last key and true, or the zero Key and false at the
// root.
func (pi PathInfo) Key() (Key, bool) {
	if pi.IsRoot() {
		return Key{}, false
	}
	return pi.keys[len(pi.keys)-1], true
}

// Parent returns the parent PathInfo, or false at the root.
func (pi PathInfo) Parent() (PathInfo, bool) {
	if pi.IsRoot() {
		return PathInfo{}, false
	}
	return PathInfo{keys: pi.keys[:len(pi.keys)-1]}, true
}

// ParentPath returns the parent's canonical path string, or "" at the
// root.
func (pi PathInfo) ParentPath() string {
	parent, ok := pi.Parent()
	if !ok {
		return ""
	}
	return parent.Path()
}

// Path renders the canonical text form: keys joined by "/", with
// integer keys rendered "[i]" attached to the preceding segment.
func (pi PathInfo) Path() string {
	return RenderKeys(pi.keys)
}

// RenderKeys renders a standalone key sequence using the same rules as
// PathInfo.Path.
func RenderKeys(keys []Key) string {
	var b strings.Builder
	for i, k := range keys {
		if k.IsIndex {
			b.WriteString(k.String())
			continue
		}
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(k.Name)
	}
	return b.String()
}

// Child constructs a descendant PathInfo. childKey may be a string
// (itself possibly a sub-path with slashes and/or "[i]" suffixes), an
// int (array index), a Key, or a []Key/[]any sequence.
func (pi PathInfo) Child(childKey any) (PathInfo, error) {
	newKeys, err := toKeys("PathInfo.Child", childKey)
	if err != nil {
		return PathInfo{}, err
	}
	merged := make([]Key, 0, len(pi.keys)+len(newKeys))
	merged = append(merged, pi.keys...)
	merged = append(merged, newKeys...)
	return PathInfo{keys: merged}, nil
}

func toKeys(op string, childKey any) ([]Key, error) {
	switch v := childKey.(type) {
	case string:
		if v == "" {
			return nil, validateStringKey(op, v)
		}
		return parseKeys(op, v)
	case int:
		return []Key{IndexKey(v)}, nil
	case Key:
		if !v.IsIndex {
			if err := validateStringKey(op, v.Name); err != nil {
				return nil, err
			}
		}
		return []Key{v}, nil
	case []Key:
		out := make([]Key, 0, len(v))
		for _, k := range v {
			ks, err := toKeys(op, k)
			if err != nil {
				return nil, err
			}
			out = append(out, ks...)
		}
		return out, nil
	case []any:
		out := make([]Key, 0, len(v))
		for _, k := range v {
			ks, err := toKeys(op, k)
			if err != nil {
				return nil, err
			}
			out = append(out, ks...)
		}
		return out, nil
	default:
		return nil, &acerr.PathRuleError{
			Base:   acerr.Base{Op: op},
			Reason: "unsupported child key type",
		}
	}
}

// Equals compares two paths key-by-key, treating "*" and "$var" as
// wildcards matching any single key on either side.
func (pi PathInfo) Equals(other PathInfo) bool {
	if len(pi.keys) != len(other.keys) {
		return false
	}
	for i := range pi.keys {
		if !pi.keys[i].Equal(other.keys[i]) {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether pi is a strict ancestor of other: every
// key of pi matches the corresponding prefix key of other (with
// wildcards), and other is strictly longer. The root is an ancestor of
// every non-root path.
func (pi PathInfo) IsAncestorOf(other PathInfo) bool {
	if len(pi.keys) >= len(other.keys) {
		return false
	}
	for i := range pi.keys {
		if !pi.keys[i].Equal(other.keys[i]) {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether pi is a strict descendant of other.
func (pi PathInfo) IsDescendantOf(other PathInfo) bool {
	return other.IsAncestorOf(pi)
}

// IsOnTrailOf reports whether pi and other share a common prefix: one
// is a prefix of the other (with wildcards). This relation is
// reflexive and symmetric; the root is on every trail.
func (pi PathInfo) IsOnTrailOf(other PathInfo) bool {
	n := len(pi.keys)
	if len(other.keys) < n {
		n = len(other.keys)
	}
	for i := 0; i < n; i++ {
		if !pi.keys[i].Equal(other.keys[i]) {
			return false
		}
	}
	return true
}

// ExtractResult is the output of ExtractVariables: numeric indices
// give every wildcard/variable match in order, and bound variable
// names (with and without their "$" prefix) map to the same values.
type ExtractResult struct {
	Ordered []any          // match values, in pattern order
	Named   map[string]any // "$name" and "name" keys -> bound value
}

// Length is the number of wildcard/variable matches.
func (r ExtractResult) Length() int { return len(r.Ordered) }

// ExtractVariables matches pattern's wildcard/variable keys against
// concretePath's keys at the same positions and returns every binding.
// Returns an empty result if the pattern has no wildcards.
func ExtractVariables(pattern, concretePath PathInfo) ExtractResult {
	res := ExtractResult{Named: map[string]any{}}
	n := len(pattern.keys)
	if len(concretePath.keys) < n {
		n = len(concretePath.keys)
	}
	for i := 0; i < n; i++ {
		pk := pattern.keys[i]
		if !pk.IsWildcardOrVariable() {
			continue
		}
		ck := concretePath.keys[i]
		val := ck.Raw()
		res.Ordered = append(res.Ordered, val)
		if pk.IsVariable() {
			name := pk.VariableName()
			res.Named[name] = val
			res.Named["$"+name] = val
		}
	}
	return res
}

// FillVariables substitutes pattern's wildcard/variable slots with the
// corresponding concrete keys from concretePath, re-rendering using
// the same "/key" and "[index]" rules.
func FillVariables(pattern, concretePath PathInfo) string {
	n := len(pattern.keys)
	out := make([]Key, n)
	for i := 0; i < n; i++ {
		pk := pattern.keys[i]
		if pk.IsWildcardOrVariable() && i < len(concretePath.keys) {
			out[i] = concretePath.keys[i]
		} else {
			out[i] = pk
		}
	}
	return RenderKeys(out)
}
