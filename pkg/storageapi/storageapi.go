// Package storageapi defines the abstract storage contract the
// kernel is built against (spec.md §6). The kernel never talks to a
// concrete database directly; every DataReference/Query operation is
// forwarded through this interface, which an implementation such as
// an in-memory store or a Postgres-backed one satisfies.
package storageapi

import (
	"context"
	"io"
)

// Context is the arbitrary user-supplied payload attached to every
// write. The kernel stamps proxy-originated writes with a CtxProxyKey
// entry and reads CtxCursorKey back out of responses.
type Context map[string]any

const (
	// CtxProxyKey is the Context key under which the kernel records
	// proxy-origin metadata on writes it issues for a LiveDataProxy.
	CtxProxyKey = "acebase_proxy"
	// CtxCursorKey is the Context key a storage response uses to
	// report the cursor produced by a write or event.
	CtxCursorKey = "acebase_cursor"
)

// ProxyOrigin is the value stored under CtxProxyKey.
type ProxyOrigin struct {
	ID     string
	Source string // "set" | "update" | "update-rollback"
}

// GetOptions configures a read.
type GetOptions struct {
	Include      []string
	Exclude      []string
	Child        []string
	AllowCache   bool
	CacheCursor  string
	CacheMode    string // "allow" | "bypass" | "force"
}

// GetResult is what a storage Get call returns.
type GetResult struct {
	Value   any
	Context Context
	Cursor  string
}

// WriteResult is what Set/Update/Transaction return.
type WriteResult struct {
	Cursor string
}

// ReflectType names what Reflect enumerates.
type ReflectType string

const (
	ReflectChildren ReflectType = "children"
	ReflectInfo     ReflectType = "info"
)

// ReflectArgs configures a Reflect call.
type ReflectArgs struct {
	Limit int
	Skip  int
}

// ReflectResult is the paginated output of a "children" reflection.
type ReflectResult struct {
	List []ReflectChild
	More bool
}

// ReflectChild is one enumerated child key, without its value.
type ReflectChild struct {
	Key string
}

// FilterOp is a query comparison operator (spec.md §4.7).
type FilterOp string

const (
	OpLT              FilterOp = "<"
	OpLTE             FilterOp = "<="
	OpEQ              FilterOp = "=="
	OpNEQ             FilterOp = "!="
	OpGT              FilterOp = ">"
	OpGTE             FilterOp = ">="
	OpExists          FilterOp = "exists"
	OpNotExists       FilterOp = "!exists"
	OpBetween         FilterOp = "between"
	OpNotBetween      FilterOp = "!between"
	OpLike            FilterOp = "like"
	OpNotLike         FilterOp = "!like"
	OpMatches         FilterOp = "matches"
	OpNotMatches      FilterOp = "!matches"
	OpIn              FilterOp = "in"
	OpNotIn           FilterOp = "!in"
	OpHas             FilterOp = "has"
	OpNotHas          FilterOp = "!has"
	OpContains        FilterOp = "contains"
	OpNotContains     FilterOp = "!contains"
	OpFulltextContain FilterOp = "fulltext:contains"
	OpFulltextNot     FilterOp = "fulltext:!contains"
	OpGeoNearby       FilterOp = "geo:nearby"
)

// Filter is one query condition.
type Filter struct {
	Key     string
	Op      FilterOp
	Compare any
}

// SortKey orders query results.
type SortKey struct {
	Key       string
	Ascending bool
}

// QuerySettings bundles filters, paging and ordering for a Query.
type QuerySettings struct {
	Filters []Filter
	Skip    int
	Take    int
	Order   []SortKey
}

// QueryOptions tunes execution, including realtime monitoring.
type QueryOptions struct {
	Snapshots    bool // true: return values; false: references only
	Monitor      bool
	EventHandler func(event string, path string, value any)
}

// QueryResultItem is one matched path/value pair.
type QueryResultItem struct {
	Path  string
	Value any
}

// QueryResult is the outcome of a Query.
type QueryResult struct {
	Results []QueryResultItem
	Context Context
	Stop    func()
}

// MutationFilter selects a slice of the transaction log.
type MutationFilter struct {
	Path      string
	Cursor    string
	Timestamp int64
	For       []MutationFilterFor
}

// MutationFilterFor scopes a mutation filter to specific events at a path.
type MutationFilterFor struct {
	Path   string
	Events []string
}

// MutationRecord is one entry in the transaction log.
type MutationRecord struct {
	Path      string
	Event     string
	Value     any
	Previous  any
	Context   Context
	Cursor    string
	Timestamp int64
}

// Schema describes a validation schema bound to a path.
type Schema struct {
	Path string
	Spec any
}

// BridgeCallback is what Subscribe/Unsubscribe register: it receives
// raw (path, newValue, oldValue, context) notifications for the
// subscribed event.
type BridgeCallback func(path string, newValue, oldValue any, ctx Context)

// API is the full storage contract consumed by the kernel. Every
// method may block; callers pass a context.Context for cancellation.
type API interface {
	Subscribe(ctx context.Context, path string, event string, cb BridgeCallback) error
	Unsubscribe(ctx context.Context, path string, event string, cb BridgeCallback) error

	Get(ctx context.Context, path string, opts GetOptions) (GetResult, error)
	Set(ctx context.Context, path string, value any, wctx Context) (WriteResult, error)
	Update(ctx context.Context, path string, updates map[string]any, wctx Context) (WriteResult, error)
	Transaction(ctx context.Context, path string, fn func(current any) (any, error), wctx Context) (WriteResult, error)
	Exists(ctx context.Context, path string) (bool, error)

	Reflect(ctx context.Context, path string, typ ReflectType, args ReflectArgs) (ReflectResult, error)
	Query(ctx context.Context, path string, settings QuerySettings, opts QueryOptions) (QueryResult, error)

	Export(ctx context.Context, path string, w io.Writer, opts map[string]any) error
	Import(ctx context.Context, path string, r io.Reader, opts map[string]any) error

	CreateIndex(ctx context.Context, path string, key string, opts map[string]any) error
	GetIndexes(ctx context.Context) ([]string, error)
	DeleteIndex(ctx context.Context, path string, key string) error

	SetSchema(ctx context.Context, path string, schema Schema) error
	GetSchema(ctx context.Context, path string) (Schema, error)
	GetSchemas(ctx context.Context) ([]Schema, error)
	ValidateSchema(ctx context.Context, path string, value any) error

	GetMutations(ctx context.Context, filter MutationFilter) ([]MutationRecord, error)
	GetChanges(ctx context.Context, filter MutationFilter) ([]MutationRecord, error)
}
