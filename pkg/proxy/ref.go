// Package proxy implements LiveDataProxy (spec.md §4.8): an in-memory
// object graph kept synchronized with a subtree of the database,
// supporting local writes batched through a sync scheduler, remote
// mutation intake, scoped change handlers, and transactions.
//
// Per spec.md §9's design note on JavaScript Proxy, there is no
// language-level proxy trap here: reads and writes go through Node's
// explicit get/set/delete methods, all backed by a single path-indexed
// tree mutator over the in-memory cache.
//
// This package defines its own minimal reference surface (Ref) rather
// than importing pkg/acebase, so pkg/acebase can depend on pkg/proxy
// one-directionally for its DataReference.Proxy convenience method
// without an import cycle.
package proxy

import (
	"context"

	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

// Snapshot is the minimal read surface the proxy needs from whatever
// the reference's Get returns.
type Snapshot interface {
	Val() any
	Context() storageapi.Context
}

// MutationEvent is one relative mutation delivered by a "mutations"
// notification, scoped to the subscribed reference's own path.
type MutationEvent struct {
	Target []any
	Val    any
	Prev   any
}

// MutationsPayload groups every mutation delivered by a single
// notification batch.
type MutationsPayload struct {
	Mutations []MutationEvent
	Context   storageapi.Context
}

// Subscription is returned by Ref.OnMutations.
type Subscription interface {
	Stop()
}

// Ref is the minimal reference surface LiveDataProxy is built
// against. acebase.DataReference.Proxy adapts *DataReference to this
// interface.
type Ref interface {
	Path() string
	Key() any
	Cursor() string
	Child(key any) (Ref, error)

	Get(ctx context.Context, opts storageapi.GetOptions) (Snapshot, error)
	SetWithContext(ctx context.Context, value any, wctx storageapi.Context) error
	UpdateWithContext(ctx context.Context, updates any, wctx storageapi.Context) error
	Push(ctx context.Context, value any) (Ref, error)

	// OnMutations subscribes to the reference's "mutations" event; cb is
	// invoked once per notification batch, cancelCb if storage
	// denies/cancels it. No sync fallback is run when notifications are
	// missed: the acebase adapter passes SyncFallback "reload", and
	// DataReference.On does not act on it.
	OnMutations(ctx context.Context, cb func(MutationsPayload), cancelCb func(reason string)) (Subscription, error)
}
