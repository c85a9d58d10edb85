// Package values defines the augmented-JSON value set shared by the
// diff, serializer, and proxy packages: plain JSON plus Date, binary,
// RegExp, PathReference and PartialArray.
package values

import (
	"math/big"
	"regexp"
	"time"
)

// Regexp is the augmented-value counterpart of a JS RegExp: a source
// pattern plus the original flag letters, compiled lazily on demand so
// flag combinations Go's regexp package can't represent directly
// (e.g. "g") still round-trip losslessly through the serializer.
type Regexp struct {
	Source string
	Flags  string
}

// NewRegexp constructs a Regexp value without compiling it.
func NewRegexp(source, flags string) Regexp {
	return Regexp{Source: source, Flags: flags}
}

// Compile builds a Go *regexp.Regexp honoring the "i", "m" and "s"
// flags understood by Go's inline flag syntax; other flags (e.g. the
// JS-only "g", "u", "y") are accepted but have no compiled effect.
func (r Regexp) Compile() (*regexp.Regexp, error) {
	prefix := ""
	for _, f := range r.Flags {
		switch f {
		case 'i', 'm', 's':
			prefix += string(f)
		}
	}
	pattern := r.Source
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// PathReference is an opaque boxed path, distinguished from a plain
// string so the serializer round-trips it as a cross-path reference
// instead of literal text.
type PathReference struct {
	Path string
}

// NewPathReference boxes a path string as a cross-reference value.
func NewPathReference(path string) PathReference {
	return PathReference{Path: path}
}

func (r PathReference) String() string { return r.Path }

// PartialArray is a sparse-array view: an integer-keyed map carrying
// array semantics, kept distinct from both Array and Map so codecs can
// preserve the "this was meant to be an array with gaps" intent even
// when most indices are absent.
type PartialArray map[int]any

// Get returns the value at index i and whether it is present.
func (p PartialArray) Get(i int) (any, bool) {
	v, ok := p[i]
	return v, ok
}

// MaxIndex returns the highest populated index, or -1 if empty.
func (p PartialArray) MaxIndex() int {
	max := -1
	for i := range p {
		if i > max {
			max = i
		}
	}
	return max
}

// Binary wraps a byte buffer so it round-trips distinctly from a
// string through the serializer and diff engine.
type Binary []byte

// SnapshotMarker is implemented by DataSnapshot so diff.CloneObject can
// reject attempts to clone a snapshot (spec.md §4.2, InvalidClone)
// without the diff package importing the acebase package.
type SnapshotMarker interface {
	AcebaseSnapshotMarker()
}

// IsVoid reports whether v is "void" in the spec's sense: nil or the
// Go untyped absence marker used by Map lookups (a missing key). The
// diff/serializer packages treat nil exactly as "void".
func IsVoid(v any) bool {
	return v == nil
}

// Kind classifies an augmented JSON value for switch-based dispatch in
// the diff, serializer and proxy packages.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBigInt
	KindDate
	KindBinary
	KindRegexp
	KindPathReference
	KindPartialArray
	KindArray
	KindMap
)

// KindOf classifies v into one of the augmented-value kinds.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindVoid
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case *big.Int:
		return KindBigInt
	case time.Time:
		return KindDate
	case Binary:
		return KindBinary
	case Regexp:
		return KindRegexp
	case PathReference:
		return KindPathReference
	case PartialArray:
		return KindPartialArray
	case []any:
		return KindArray
	case map[string]any:
		return KindMap
	default:
		return KindVoid
	}
}
