// Package idgen provides the kernel's default ID generator: an opaque
// string guaranteed unique within a process and lexicographically
// sortable by creation time (spec.md §6). ID generation itself is an
// external collaborator per spec.md §1 -- this is the default wiring
// used by DataReference.push and the example storage backends,
// grounded on the teacher's own TypeID usage
// (pkg/dcb/typeid_helpers.go) for event identifiers.
package idgen

import (
	"strings"

	"go.jetify.com/typeid"
)

// Generator produces unique, time-ordered IDs. DataReference.push and
// the example storage backends depend on this interface rather than a
// concrete package so callers can swap in the host's own ID scheme
// (e.g. the CUID-style generator the original kernel expects).
type Generator interface {
	NewID() string
}

// Default is the typeid-backed generator: its suffix is a base32
// encoding of a UUIDv7, which is monotonically increasing with
// millisecond resolution, giving the lexicographic-sort property
// spec.md §6 requires without needing a bespoke CUID implementation.
type Default struct {
	// Prefix is prepended to every generated ID, separated by "_".
	// Empty by default, matching a bare CUID-style ID.
	Prefix string
}

// NewDefault builds the default generator with no prefix.
func NewDefault() *Default { return &Default{} }

// NewID returns a new unique, time-ordered ID.
func (d *Default) NewID() string {
	prefix := d.Prefix
	if prefix == "" {
		prefix = "id"
	}
	tid, err := typeid.WithPrefix(prefix)
	if err != nil {
		// WithPrefix only fails on an invalid prefix; "id" is always
		// valid, so this path is unreachable in practice.
		tid, _ = typeid.WithPrefix("id")
	}
	if d.Prefix == "" {
		// Strip the synthetic "id_" prefix so bare push() IDs look
		// like opaque tokens rather than carrying a fixed tag.
		return strings.TrimPrefix(tid.String(), "id_")
	}
	return tid.String()
}
