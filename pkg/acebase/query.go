package acebase

import (
	"context"
	"fmt"

	"github.com/acebase-go/acebase-core/pkg/storageapi"
	"github.com/acebase-go/acebase-core/pkg/values"
)

// Query is built from a DataReference and accumulates filters, paging
// and sort keys before Get executes it against storage.
type Query struct {
	ref      *DataReference
	filters  []storageapi.Filter
	skip     int
	take     int
	order    []storageapi.SortKey
	handlers map[string][]func(path string, value any)
	stopFn   func()
}

// NewQuery builds an empty Query rooted at ref.
func NewQuery(ref *DataReference) *Query {
	return &Query{ref: ref, handlers: map[string][]func(path string, value any){}}
}

// Where adds a filter, validating argument shapes for the operators
// that require them.
func (q *Query) Where(key string, op storageapi.FilterOp, compare any) (*Query, error) {
	if err := validateFilterArgs(op, compare); err != nil {
		return q, err
	}
	q.filters = append(q.filters, storageapi.Filter{Key: key, Op: op, Compare: compare})
	return q, nil
}

func validateFilterArgs(op storageapi.FilterOp, compare any) error {
	switch op {
	case storageapi.OpIn, storageapi.OpNotIn:
		arr, ok := compare.([]any)
		if !ok || len(arr) == 0 {
			return fmt.Errorf("query: %s requires a non-empty array", op)
		}
	case storageapi.OpBetween, storageapi.OpNotBetween:
		arr, ok := compare.([]any)
		if !ok || len(arr) != 2 {
			return fmt.Errorf("query: %s requires a 2-element array", op)
		}
	case storageapi.OpMatches, storageapi.OpNotMatches:
		if _, ok := compare.(values.Regexp); !ok {
			return fmt.Errorf("query: %s requires a regexp", op)
		}
	}
	return nil
}

// Skip sets the number of leading results to skip.
func (q *Query) Skip(n int) *Query { q.skip = n; return q }

// Take caps the number of results returned.
func (q *Query) Take(n int) *Query { q.take = n; return q }

// Sort orders results by key, ascending unless desc is true.
func (q *Query) Sort(key string, desc bool) *Query {
	q.order = append(q.order, storageapi.SortKey{Key: key, Ascending: !desc})
	return q
}

// On registers a realtime add/change/remove listener; once any such
// listener is registered, Get opts in to server-side monitoring.
func (q *Query) On(event string, handler func(path string, value any)) {
	q.handlers[event] = append(q.handlers[event], handler)
}

// Stop terminates realtime monitoring started by a previous Get call.
func (q *Query) Stop() {
	if q.stopFn != nil {
		q.stopFn()
		q.stopFn = nil
	}
}

func (q *Query) settings() storageapi.QuerySettings {
	return storageapi.QuerySettings{Filters: q.filters, Skip: q.skip, Take: q.take, Order: q.order}
}

// Get executes the query. asSnapshots selects between a
// DataSnapshotsArray (true) and a DataReferencesArray (false).
func (q *Query) Get(ctx context.Context, asSnapshots bool) ([]*DataSnapshot, []*DataReference, error) {
	monitor := len(q.handlers) > 0
	opts := storageapi.QueryOptions{Snapshots: asSnapshots, Monitor: monitor}
	if monitor {
		opts.EventHandler = func(event string, path string, value any) {
			for _, h := range q.handlers[event] {
				h(path, value)
			}
		}
	}
	res, err := q.ref.db.Storage.Query(ctx, q.ref.p.Path(), q.settings(), opts)
	if err != nil {
		return nil, nil, err
	}
	q.stopFn = res.Stop

	if asSnapshots {
		snaps := make([]*DataSnapshot, len(res.Results))
		for i, item := range res.Results {
			childRef, err := q.ref.db.Ref(item.Path)
			if err != nil {
				return nil, nil, err
			}
			val, err := q.ref.db.Types.Deserialize(item.Value, childRef.p, identitySnap)
			if err != nil {
				return nil, nil, err
			}
			snaps[i] = newSnapshot(childRef, val, res.Context)
		}
		return snaps, nil, nil
	}

	refs := make([]*DataReference, len(res.Results))
	for i, item := range res.Results {
		childRef, err := q.ref.db.Ref(item.Path)
		if err != nil {
			return nil, nil, err
		}
		refs[i] = childRef
	}
	return nil, refs, nil
}

// RemoveResult is the per-path outcome of Query.Remove.
type RemoveResult struct {
	Path  string
	Error error
}

// Remove groups matching paths by parent and issues one update per
// parent with every matched child set to null.
func (q *Query) Remove(ctx context.Context) ([]RemoveResult, error) {
	_, refs, err := q.Get(ctx, false)
	if err != nil {
		return nil, err
	}

	byParent := map[string][]*DataReference{}
	order := []string{}
	for _, ref := range refs {
		parent, ok := ref.Parent()
		parentPath := ""
		if ok {
			parentPath = parent.Path()
		}
		if _, seen := byParent[parentPath]; !seen {
			order = append(order, parentPath)
		}
		byParent[parentPath] = append(byParent[parentPath], ref)
	}

	var results []RemoveResult
	for _, parentPath := range order {
		children := byParent[parentPath]
		parentRef, err := q.ref.db.Ref(parentPath)
		if err != nil {
			for _, c := range children {
				results = append(results, RemoveResult{Path: c.Path(), Error: err})
			}
			continue
		}
		updates := map[string]any{}
		for _, c := range children {
			key, _ := c.Key().(string)
			updates[key] = nil
		}
		err = parentRef.Update(ctx, updates)
		for _, c := range children {
			results = append(results, RemoveResult{Path: c.Path(), Error: err})
		}
	}
	return results, nil
}
