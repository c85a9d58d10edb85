package acebase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
	"github.com/acebase-go/acebase-core/pkg/values"
)

// DataReference is an immutable handle to a path plus a reference to
// the shared database context. Its cursor field is the one piece of
// mutable state: it tracks the most recent cursor observed from any
// operation or subscription event on this reference.
type DataReference struct {
	db *Db
	p  path.PathInfo

	mu     sync.Mutex
	cursor string

	subsMu sync.Mutex
	subs   []*subscription
}

// Db returns the shared database context.
func (r *DataReference) Db() *Db { return r.db }

// Path renders the reference's path, e.g. "users/ewout".
func (r *DataReference) Path() string { return r.p.Path() }

// PathInfo returns the underlying parsed path.
func (r *DataReference) PathInfo() path.PathInfo { return r.p }

// Key returns the reference's own key (string or int), or nil at root.
func (r *DataReference) Key() any {
	k, ok := r.p.Key()
	if !ok {
		return nil
	}
	return k.Raw()
}

// Parent returns the parent reference, or false at root.
func (r *DataReference) Parent() (*DataReference, bool) {
	pp, ok := r.p.Parent()
	if !ok {
		return nil, false
	}
	return &DataReference{db: r.db, p: pp}, true
}

// Child returns a reference to a descendant path.
func (r *DataReference) Child(key any) (*DataReference, error) {
	cp, err := r.p.Child(key)
	if err != nil {
		return nil, err
	}
	return &DataReference{db: r.db, p: cp}, nil
}

// Cursor returns the most recently observed cursor for this reference.
func (r *DataReference) Cursor() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

func (r *DataReference) setCursor(c string) {
	if c == "" {
		return
	}
	r.mu.Lock()
	r.cursor = c
	r.mu.Unlock()
}

func hasWildcard(p path.PathInfo) bool {
	for _, k := range p.Keys() {
		if k.IsWildcardOrVariable() {
			return true
		}
	}
	return false
}

func (r *DataReference) guardWildcard(op string) error {
	if hasWildcard(r.p) {
		return &acerr.WildcardError{Base: acerr.Base{Op: op}, Path: r.p.Path()}
	}
	return nil
}

func (r *DataReference) guardRoot(op string) error {
	if r.p.IsRoot() {
		return &acerr.PathRuleError{Base: acerr.Base{Op: op}, Key: "", Reason: "operation not allowed on root path"}
	}
	return nil
}

func identitySnap(v any) any { return v }

// Get awaits readiness, refuses wildcard paths, and returns a snapshot
// of the current value, deserializing any bound types along the way.
func (r *DataReference) Get(ctx context.Context, opts storageapi.GetOptions) (*DataSnapshot, error) {
	if err := r.guardWildcard("DataReference.Get"); err != nil {
		return nil, err
	}
	if err := r.db.Ready(ctx); err != nil {
		return nil, err
	}
	res, err := r.db.Storage.Get(ctx, r.p.Path(), opts)
	if err != nil {
		return nil, err
	}
	r.setCursor(cursorFrom(res.Context))
	val, err := r.db.Types.Deserialize(res.Value, r.p, identitySnap)
	if err != nil {
		return nil, err
	}
	return newSnapshot(r, val, res.Context), nil
}

func cursorFrom(ctx storageapi.Context) string {
	if ctx == nil {
		return ""
	}
	c, _ := ctx[storageapi.CtxCursorKey].(string)
	return c
}

// Set refuses wildcard and root paths, serializes value via the
// type-mapping registry and writes it.
func (r *DataReference) Set(ctx context.Context, value any) error {
	return r.SetWithContext(ctx, value, nil)
}

// SetWithContext is Set, but threads wctx onto the storage write so
// callers (the proxy sync scheduler in particular) can stamp writes
// with their own origin metadata.
func (r *DataReference) SetWithContext(ctx context.Context, value any, wctx storageapi.Context) error {
	if err := r.guardWildcard("DataReference.Set"); err != nil {
		return err
	}
	if err := r.guardRoot("DataReference.Set"); err != nil {
		return err
	}
	plain, err := r.db.Types.Serialize(value, r.p, r)
	if err != nil {
		return err
	}
	if wctx == nil {
		wctx = storageapi.Context{}
	}
	res, err := r.db.Storage.Set(ctx, r.p.Path(), plain, wctx)
	if err != nil {
		return err
	}
	r.setCursor(res.Cursor)
	return nil
}

// Update refuses wildcard paths. Non-object updates delegate to Set.
// A nil/void updates value raises UndefinedValueError.
func (r *DataReference) Update(ctx context.Context, updates any) error {
	return r.UpdateWithContext(ctx, updates, nil)
}

// UpdateWithContext is Update, but threads wctx onto the storage write.
func (r *DataReference) UpdateWithContext(ctx context.Context, updates any, wctx storageapi.Context) error {
	if err := r.guardWildcard("DataReference.Update"); err != nil {
		return err
	}
	if values.IsVoid(updates) {
		return &acerr.UndefinedValueError{Base: acerr.Base{Op: "DataReference.Update"}, Path: r.p.Path()}
	}
	m, ok := updates.(map[string]any)
	if !ok {
		return r.SetWithContext(ctx, updates, wctx)
	}
	plain, err := r.db.Types.Serialize(m, r.p, r)
	if err != nil {
		return err
	}
	plainMap, _ := plain.(map[string]any)
	if wctx == nil {
		wctx = storageapi.Context{}
	}
	res, err := r.db.Storage.Update(ctx, r.p.Path(), plainMap, wctx)
	if err != nil {
		return err
	}
	r.setCursor(res.Cursor)
	return nil
}

// Transaction refuses wildcard paths. fn receives a snapshot of the
// current value and returns the value to persist in its place.
func (r *DataReference) Transaction(ctx context.Context, fn func(snap *DataSnapshot) (any, error)) error {
	if err := r.guardWildcard("DataReference.Transaction"); err != nil {
		return err
	}
	res, err := r.db.Storage.Transaction(ctx, r.p.Path(), func(current any) (any, error) {
		val, err := r.db.Types.Deserialize(current, r.p, identitySnap)
		if err != nil {
			return nil, err
		}
		next, err := fn(newSnapshot(r, val, nil))
		if err != nil {
			return nil, err
		}
		return r.db.Types.Serialize(next, r.p, r)
	}, storageapi.Context{})
	if err != nil {
		return err
	}
	r.setCursor(res.Cursor)
	return nil
}

// Push mints a new child ID via the database's ID generator and
// optionally writes value to it.
func (r *DataReference) Push(ctx context.Context, value any) (*DataReference, error) {
	id := r.db.IDs.NewID()
	child, err := r.Child(id)
	if err != nil {
		return nil, err
	}
	if !values.IsVoid(value) {
		if err := child.Set(ctx, value); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// Remove is shorthand for Set(ctx, nil); it refuses root and wildcard
// paths via Set's own guards.
func (r *DataReference) Remove(ctx context.Context) error {
	return r.Set(ctx, nil)
}

// Exists refuses wildcard paths.
func (r *DataReference) Exists(ctx context.Context) (bool, error) {
	if err := r.guardWildcard("DataReference.Exists"); err != nil {
		return false, err
	}
	return r.db.Storage.Exists(ctx, r.p.Path())
}

// Reflect refuses wildcard paths and delegates to storage.
func (r *DataReference) Reflect(ctx context.Context, typ storageapi.ReflectType, args storageapi.ReflectArgs) (storageapi.ReflectResult, error) {
	if err := r.guardWildcard("DataReference.Reflect"); err != nil {
		return storageapi.ReflectResult{}, err
	}
	return r.db.Storage.Reflect(ctx, r.p.Path(), typ, args)
}

// Count enumerates children via paginated Reflect and returns the
// total. It refuses wildcard paths.
func (r *DataReference) Count(ctx context.Context) (int, error) {
	total := 0
	skip := 0
	for {
		res, err := r.Reflect(ctx, storageapi.ReflectChildren, storageapi.ReflectArgs{Limit: 200, Skip: skip})
		if err != nil {
			return 0, err
		}
		total += len(res.List)
		if !res.More {
			break
		}
		skip += len(res.List)
	}
	return total, nil
}

// Export refuses wildcard paths and delegates to storage.
func (r *DataReference) Export(ctx context.Context, w io.Writer, opts map[string]any) error {
	if err := r.guardWildcard("DataReference.Export"); err != nil {
		return err
	}
	return r.db.Storage.Export(ctx, r.p.Path(), w, opts)
}

// Import refuses wildcard paths and delegates to storage.
func (r *DataReference) Import(ctx context.Context, rd io.Reader, opts map[string]any) error {
	if err := r.guardWildcard("DataReference.Import"); err != nil {
		return err
	}
	return r.db.Storage.Import(ctx, r.p.Path(), rd, opts)
}

// ForEachResult summarizes a ForEach run.
type ForEachResult struct {
	Canceled  bool
	Total     int
	Processed int
}

// ForEach enumerates children via reflect('children') without loading
// values, then streams each child via Get(opts) into cb sequentially.
// It stops on the first cb returning false.
func (r *DataReference) ForEach(ctx context.Context, opts storageapi.GetOptions, cb func(snap *DataSnapshot) (bool, error)) (ForEachResult, error) {
	if err := r.guardWildcard("DataReference.ForEach"); err != nil {
		return ForEachResult{}, err
	}
	res, err := r.Reflect(ctx, storageapi.ReflectChildren, storageapi.ReflectArgs{Limit: 0})
	if err != nil {
		return ForEachResult{}, err
	}
	result := ForEachResult{Total: len(res.List)}
	for _, child := range res.List {
		childRef, err := r.Child(child.Key)
		if err != nil {
			return result, err
		}
		snap, err := childRef.Get(ctx, opts)
		if err != nil {
			return result, err
		}
		cont, err := cb(snap)
		if err != nil {
			return result, err
		}
		result.Processed++
		if !cont {
			result.Canceled = true
			break
		}
	}
	return result, nil
}

// GetMutations forwards to the storage transaction-log API, selecting
// cursor or timestamp based on the argument's type.
func (r *DataReference) GetMutations(ctx context.Context, cursorOrDate any) ([]storageapi.MutationRecord, error) {
	return r.db.Storage.GetMutations(ctx, r.mutationFilter(cursorOrDate))
}

// GetChanges forwards to the storage transaction-log API.
func (r *DataReference) GetChanges(ctx context.Context, cursorOrDate any) ([]storageapi.MutationRecord, error) {
	return r.db.Storage.GetChanges(ctx, r.mutationFilter(cursorOrDate))
}

func (r *DataReference) mutationFilter(cursorOrDate any) storageapi.MutationFilter {
	f := storageapi.MutationFilter{Path: r.p.Path()}
	switch v := cursorOrDate.(type) {
	case string:
		f.Cursor = v
	case time.Time:
		f.Timestamp = v.UnixMilli()
	case int64:
		f.Timestamp = v
	}
	return f
}
