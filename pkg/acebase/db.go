// Package acebase implements the DataReference/DataSnapshot/Query
// façade over an abstract storage API (spec.md §4.7), plus the
// event-subscription bridge that translates raw storage notifications
// into user-visible snapshots and references.
package acebase

import (
	"context"
	"sync"

	"github.com/acebase-go/acebase-core/internal/idgen"
	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
	"github.com/acebase-go/acebase-core/pkg/typemapping"
)

// Db bundles the shared context a DataReference needs: the storage
// backend, the ID generator used by Push, and the type mapping
// registry used to instantiate/flatten bound Go types.
type Db struct {
	Storage storageapi.API
	IDs     idgen.Generator
	Types   *typemapping.Registry

	readyOnce sync.Once
	readyCh   chan struct{}
}

// NewDb constructs a Db. The kernel itself performs no async
// initialization, so the database is ready immediately; a storage
// backend with its own startup sequence is expected to block its own
// constructor until it can serve requests.
func NewDb(storage storageapi.API, ids idgen.Generator, types *typemapping.Registry) *Db {
	if ids == nil {
		ids = idgen.NewDefault()
	}
	if types == nil {
		types = typemapping.New()
	}
	db := &Db{Storage: storage, IDs: ids, Types: types, readyCh: make(chan struct{})}
	close(db.readyCh)
	return db
}

// Ready blocks until the database's latched "ready" state fires, or
// ctx is canceled first.
func (db *Db) Ready(ctx context.Context) error {
	select {
	case <-db.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ref builds a DataReference for the given path string.
func (db *Db) Ref(p string) (*DataReference, error) {
	pi, err := path.Get(p)
	if err != nil {
		return nil, err
	}
	return &DataReference{db: db, p: pi}, nil
}

// RefFromPath builds a DataReference for an already-parsed path.
func (db *Db) RefFromPath(p path.PathInfo) *DataReference {
	return &DataReference{db: db, p: p}
}
