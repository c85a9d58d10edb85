package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acebase-go/acebase-core/internal/idgen"
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/diff"
	"github.com/acebase-go/acebase-core/pkg/emitter"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
	"github.com/cenkalti/backoff/v4"
)

// Options configures Create (spec.md §4.8).
type Options struct {
	DefaultValue any
	Cursor       string
	IDs          idgen.Generator
}

// ErrorEvent is the payload of an "error" event.
type ErrorEvent struct {
	Source string
	Err    error
}

// MutationView is the payload of a "mutation" event.
type MutationView struct {
	Target   []any
	Val      any
	Prev     any
	IsRemote bool
}

// Proxy is a LiveDataProxy handle: an in-memory object graph kept
// synchronized with ref's subtree.
type Proxy struct {
	ref  Ref
	id   string
	ids  idgen.Generator
	opts Options

	mu           sync.Mutex
	cache        *box
	hasValue     bool
	rootWasNull  bool
	cursor       string
	destroyed    bool
	mutQueue     []*queuedMutation
	transactions []*txScope

	syncMu      sync.Mutex
	syncPending bool
	syncDone    chan struct{}

	events   *emitter.Emitter // "cursor" | "mutation" | "error"
	localBus *emitter.Emitter // "batch" -> MutationsPayload-shaped localBatch

	sub Subscription
}

type localBatch struct {
	origin    string // "local" | "remote"
	mutations []MutationEvent
}

type queuedMutation struct {
	target   []any
	previous any
}

// Create fetches ref's current value with cache-allowed semantics,
// installs opts.DefaultValue if the fetched value is void, and starts
// the remote mutation intake subscription.
func Create(ctx context.Context, ref Ref, opts Options) (*Proxy, error) {
	id := fmt.Sprintf("proxy_%d", time.Now().UnixNano())
	ids := opts.IDs
	if ids == nil {
		ids = idgen.NewDefault()
	}
	p := &Proxy{
		ref:      ref,
		id:       id,
		ids:      ids,
		opts:     opts,
		cache:    &box{},
		events:   emitter.New(),
		localBus: emitter.New(),
	}

	snap, err := ref.Get(ctx, storageapi.GetOptions{AllowCache: true, CacheCursor: opts.Cursor, CacheMode: "allow"})
	if err != nil {
		return nil, err
	}
	p.cache.root = snap.Val()
	p.hasValue = p.cache.root != nil
	p.rootWasNull = !p.hasValue
	p.cursor = ref.Cursor()
	if err := p.events.Emit("cursor", p.cursor); err != nil {
		return nil, err
	}

	if p.cache.root == nil && opts.DefaultValue != nil {
		p.cache.root = opts.DefaultValue
		p.hasValue = true
		wctx := storageapi.Context{storageapi.CtxProxyKey: storageapi.ProxyOrigin{ID: p.id, Source: "set"}}
		if err := ref.SetWithContext(ctx, opts.DefaultValue, wctx); err != nil {
			return nil, err
		}
	}

	sub, err := ref.OnMutations(ctx, p.onRemoteMutations, p.onIntakeCanceled)
	if err != nil {
		return nil, err
	}
	p.sub = sub
	return p, nil
}

// Value returns the root Node of the proxy tree.
func (p *Proxy) Value() *Node { return &Node{p: p, target: nil} }

// HasValue reports whether the cached root is non-void.
func (p *Proxy) HasValue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasValue
}

// Ref returns the underlying reference.
func (p *Proxy) Ref() Ref { return p.ref }

// Cursor returns the most recently observed cursor.
func (p *Proxy) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// On registers a listener for "cursor", "mutation" or "error" events
// and returns a function that unregisters it.
func (p *Proxy) On(event string, cb func(data any)) func() {
	p.events.On(event, cb)
	return func() { p.events.Off(event, cb) }
}

// Reload re-fetches ref's current value and replaces the cache
// wholesale, retrying with backoff on transient failure (spec.md
// §4.8.2 drift recovery path).
func (p *Proxy) Reload(ctx context.Context) error {
	op := func() error {
		snap, err := p.ref.Get(ctx, storageapi.GetOptions{})
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.cache.root = snap.Val()
		p.hasValue = p.cache.root != nil
		p.cursor = p.ref.Cursor()
		p.mu.Unlock()
		_ = p.events.Emit("cursor", p.cursor)
		return nil
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(op, bo); err != nil {
		_ = p.events.Emit("error", ErrorEvent{Source: "reload", Err: err})
		return err
	}
	return nil
}

// Destroy awaits the current sync to finish, then stops the remote
// mutation subscription. Afterwards Node.Set, Node.Remove, Node.Push
// and StartTransaction raise ProxyDestroyedError; reads, Reload and
// handler registration are not checked and keep working on the cache.
func (p *Proxy) Destroy() error {
	p.awaitSync()
	p.mu.Lock()
	p.destroyed = true
	p.mu.Unlock()
	if p.sub != nil {
		p.sub.Stop()
	}
	return nil
}

// Stop is an alias for Destroy.
func (p *Proxy) Stop() error { return p.Destroy() }

func (p *Proxy) guardDestroyed(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return &acerr.ProxyDestroyedError{Base: acerr.Base{Op: op}}
	}
	return nil
}

func (p *Proxy) snapshot() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp, err := diff.CloneObject(p.cache.root)
	if err != nil {
		return p.cache.root
	}
	return cp
}
