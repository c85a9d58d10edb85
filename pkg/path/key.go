package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/acebase-go/acebase-core/pkg/acerr"
)

// MaxKeyLength is the cap on string key length (spec.md §3).
const MaxKeyLength = 128

// Key is one segment of a path: either a non-empty string (object
// property) or a non-negative integer (array index).
type Key struct {
	Name    string
	Index   int
	IsIndex bool
}

// StringKey builds a string-valued key.
func StringKey(name string) Key { return Key{Name: name} }

// IndexKey builds an integer-valued (array index) key.
func IndexKey(i int) Key { return Key{Index: i, IsIndex: true} }

// IsWildcard reports whether the key is the single-key wildcard "*".
func (k Key) IsWildcard() bool { return !k.IsIndex && k.Name == "*" }

// IsVariable reports whether the key is a bound variable ("$name").
func (k Key) IsVariable() bool { return !k.IsIndex && strings.HasPrefix(k.Name, "$") }

// VariableName returns the variable name without its leading "$", or
// "" if the key is not a variable.
func (k Key) VariableName() string {
	if !k.IsVariable() {
		return ""
	}
	return k.Name[1:]
}

// IsWildcardOrVariable reports whether this key matches any single
// concrete key when compared against another path.
func (k Key) IsWildcardOrVariable() bool { return k.IsWildcard() || k.IsVariable() }

// Equal compares two keys, treating a wildcard or variable key on
// either side as matching any key of the other kind.
func (k Key) Equal(other Key) bool {
	if k.IsWildcardOrVariable() || other.IsWildcardOrVariable() {
		return true
	}
	if k.IsIndex != other.IsIndex {
		return false
	}
	if k.IsIndex {
		return k.Index == other.Index
	}
	return k.Name == other.Name
}

// Raw returns the key's underlying value as a string or int, suitable
// for use as a map/array index by callers outside this package.
func (k Key) Raw() any {
	if k.IsIndex {
		return k.Index
	}
	return k.Name
}

func (k Key) String() string {
	if k.IsIndex {
		return "[" + strconv.Itoa(k.Index) + "]"
	}
	return k.Name
}

// validateStringKey enforces the key-rules invariant (spec.md §3): no
// control characters, no '/', '[', ']', '\\', length capped at
// MaxKeyLength, and never empty.
func validateStringKey(op, name string) error {
	if name == "" {
		return &acerr.PathRuleError{
			Base:   acerr.Base{Op: op},
			Key:    name,
			Reason: "empty string keys are forbidden",
		}
	}
	if len(name) > MaxKeyLength {
		return &acerr.PathRuleError{
			Base:   acerr.Base{Op: op},
			Key:    name,
			Reason: fmt.Sprintf("exceeds %d characters", MaxKeyLength),
		}
	}
	for _, r := range name {
		if isForbiddenRune(r) {
			return &acerr.PathRuleError{
				Base:   acerr.Base{Op: op},
				Key:    name,
				Reason: fmt.Sprintf("contains forbidden character %q", r),
			}
		}
	}
	return nil
}

func isForbiddenRune(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r == '/' || r == '[' || r == ']' || r == '\\':
		return true
	}
	return false
}
