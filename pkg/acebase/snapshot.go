package acebase

import (
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

// DataSnapshot is an immutable wrapper around a value read from a
// DataReference. It implements values.SnapshotMarker so that
// diff.CloneObject refuses to clone it directly.
type DataSnapshot struct {
	ref      *DataReference
	val      any
	prev     any
	hasPrev  bool
	sctx     storageapi.Context
}

// AcebaseSnapshotMarker brands DataSnapshot for diff.CloneObject.
func (s *DataSnapshot) AcebaseSnapshotMarker() {}

func newSnapshot(ref *DataReference, val any, sctx storageapi.Context) *DataSnapshot {
	return &DataSnapshot{ref: ref, val: val, sctx: sctx}
}

func newSnapshotWithPrevious(ref *DataReference, val, prev any, sctx storageapi.Context) *DataSnapshot {
	return &DataSnapshot{ref: ref, val: val, prev: prev, hasPrev: true, sctx: sctx}
}

// Ref returns the reference this snapshot was read from.
func (s *DataSnapshot) Ref() *DataReference { return s.ref }

// Key returns the snapshot's own key, same as its reference's Key().
func (s *DataSnapshot) Key() any { return s.ref.Key() }

// Val returns the snapshot's cached value.
func (s *DataSnapshot) Val() any { return s.val }

// Previous returns the value before the mutation this snapshot
// represents, if any.
func (s *DataSnapshot) Previous() (any, bool) { return s.prev, s.hasPrev }

// Exists reports whether the snapshot's value is non-void.
func (s *DataSnapshot) Exists() bool { return s.val != nil }

// Context returns the storage context this snapshot was read with.
func (s *DataSnapshot) Context() storageapi.Context { return s.sctx }

// Child deep-indexes into the cached value without a new storage
// round trip.
func (s *DataSnapshot) Child(key any) (*DataSnapshot, error) {
	childRef, err := s.ref.Child(key)
	if err != nil {
		return nil, err
	}
	obj, ok := s.val.(map[string]any)
	if !ok {
		return newSnapshot(childRef, nil, s.sctx), nil
	}
	name, ok := key.(string)
	if !ok {
		return newSnapshot(childRef, nil, s.sctx), nil
	}
	return newSnapshot(childRef, obj[name], s.sctx), nil
}

// HasChild reports whether the given child key is present and non-void.
func (s *DataSnapshot) HasChild(key string) bool {
	obj, ok := s.val.(map[string]any)
	if !ok {
		return false
	}
	v, present := obj[key]
	return present && v != nil
}

// HasChildren reports whether the value has at least one child.
func (s *DataSnapshot) HasChildren() bool {
	obj, ok := s.val.(map[string]any)
	return ok && len(obj) > 0
}

// NumChildren counts the snapshot's direct children.
func (s *DataSnapshot) NumChildren() int {
	obj, ok := s.val.(map[string]any)
	if !ok {
		return 0
	}
	return len(obj)
}

// ForEach visits every direct child as a snapshot, in map iteration
// order. It stops on the first cb returning false.
func (s *DataSnapshot) ForEach(cb func(child *DataSnapshot) bool) {
	obj, ok := s.val.(map[string]any)
	if !ok {
		return
	}
	for k, v := range obj {
		childRef, err := s.ref.Child(k)
		if err != nil {
			continue
		}
		if !cb(newSnapshot(childRef, v, s.sctx)) {
			return
		}
	}
}

// MutationsDataSnapshot specializes DataSnapshot for a value that is
// an ordered list of mutation records: ForEach yields one snapshot
// per mutation, and Previous always raises because each mutation
// carries its own previous value individually.
type MutationsDataSnapshot struct {
	*DataSnapshot
	mutations []storageapi.MutationRecord
}

func newMutationsSnapshot(ref *DataReference, records []storageapi.MutationRecord, sctx storageapi.Context) *MutationsDataSnapshot {
	vals := make([]any, len(records))
	for i, rec := range records {
		vals[i] = rec.Value
	}
	return &MutationsDataSnapshot{DataSnapshot: newSnapshot(ref, vals, sctx), mutations: records}
}

// ForEachMutation yields one DataSnapshot per mutation record, each
// scoped to the mutation's own path.
func (m *MutationsDataSnapshot) ForEachMutation(cb func(idx int, snap *DataSnapshot, rec storageapi.MutationRecord) bool) {
	for i, rec := range m.mutations {
		childRef, err := m.DataSnapshot.ref.db.Ref(rec.Path)
		if err != nil {
			continue
		}
		snap := newSnapshotWithPrevious(childRef, rec.Value, rec.Previous, m.sctx)
		if !cb(i, snap, rec) {
			return
		}
	}
}

// UseIndividualPrevError documents why MutationsDataSnapshot.Previous
// cannot be called directly: each mutation carries its own.
type UseIndividualPrevError struct{ Op string }

func (e *UseIndividualPrevError) Error() string {
	return e.Op + ": use each mutation's own previous value via ForEachMutation, not Previous()"
}

// Previous shadows DataSnapshot.Previous: it always panics, since a
// MutationsDataSnapshot has one previous value per mutation, not one
// overall. Use ForEachMutation's per-record previous value instead.
func (m *MutationsDataSnapshot) Previous() (any, bool) {
	panic(&UseIndividualPrevError{Op: "MutationsDataSnapshot.Previous"})
}
