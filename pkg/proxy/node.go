package proxy

import (
	"context"
	"sort"

	"github.com/acebase-go/acebase-core/internal/observable"
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/diff"
)

// Node is a handle onto one path within the proxy's cached value.
// Every read walks the live cache; every write is rerouted through the
// flag/queue machinery rather than mutating the cache directly (spec.md
// §9's design note on replacing JavaScript Proxy with an explicit
// get/set/delete tree mutator).
type Node struct {
	p      *Proxy
	target []any
}

// Target returns the node's relative key path from the proxy root.
func (n *Node) Target() []any { return cloneTarget(n.target) }

// Child returns a handle to a descendant of this node.
func (n *Node) Child(key any) *Node {
	return &Node{p: n.p, target: appendTarget(n.target, key)}
}

// Val returns a frozen (cloned) snapshot of the node's current value.
func (n *Node) Val() any {
	n.p.mu.Lock()
	v := getAt(n.p.cache, n.target)
	n.p.mu.Unlock()
	return cloneOrSelf(v)
}

// Exists reports whether the node's current value is non-void.
func (n *Node) Exists() bool { return n.Val() != nil }

// Set deep-clones value and flags it for write if it differs
// structurally from the current cache value (spec.md §4.8 "Property
// writes").
func (n *Node) Set(value any) error {
	if err := n.p.guardDestroyed("Node.Set"); err != nil {
		return err
	}
	cloned, err := diff.CloneObject(stripVoidProperties(value))
	if err != nil {
		return err
	}

	n.p.mu.Lock()
	current := getAt(n.p.cache, n.target)
	if diff.ValuesAreEqual(current, cloned) {
		n.p.mu.Unlock()
		return nil
	}
	// Queue the pre-write value as the rollback point before overwriting
	// it; flagWrite below then finds the entry and only schedules a tick.
	queued := false
	for _, m := range n.p.mutQueue {
		if targetEqual(m.target, n.target) {
			queued = true
			break
		}
	}
	if !queued {
		prev, _ := diff.CloneObject(current)
		n.p.mutQueue = append(n.p.mutQueue, &queuedMutation{target: cloneTarget(n.target), previous: prev})
	}
	setAt(n.p.cache, n.target, cloned)
	n.p.mu.Unlock()

	n.p.flagWrite(n.target)
	return nil
}

// stripVoidProperties removes nil leaf properties from a map, so a
// Set never writes explicit nulls where omission is intended (spec.md
// §4.8's removeVoidProperties).
func stripVoidProperties(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if e == nil {
				continue
			}
			out[k] = stripVoidProperties(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = stripVoidProperties(e)
		}
		return out
	default:
		return v
	}
}

// Remove deletes this node's property (spec.md §4.8 "Property deletes").
func (n *Node) Remove() error {
	if len(n.target) == 0 {
		return &acerr.ProxyTypeViolationError{Base: acerr.Base{Op: "Node.Remove"}, Target: "(root)"}
	}
	return n.Set(nil)
}

// Push mints a child id via the proxy's ID generator, writes item
// under it, and returns the new child node.
func (n *Node) Push(item any) (*Node, error) {
	if err := n.p.guardDestroyed("Node.Push"); err != nil {
		return nil, err
	}
	id := n.p.ids.NewID()
	child := n.Child(id)
	if err := child.Set(item); err != nil {
		return nil, err
	}
	return child, nil
}

// ForEach visits every direct child as (key, *Node), in the current
// cache's map iteration order. It stops on the first cb returning
// false.
func (n *Node) ForEach(cb func(key any, child *Node) bool) {
	n.p.mu.Lock()
	v := getAt(n.p.cache, n.target)
	n.p.mu.Unlock()
	switch t := v.(type) {
	case map[string]any:
		for k := range t {
			if !cb(k, n.Child(k)) {
				return
			}
		}
	case []any:
		for i := range t {
			if !cb(i, n.Child(i)) {
				return
			}
		}
	}
}

// Keys returns the node's direct child keys.
func (n *Node) Keys() []any {
	var keys []any
	n.ForEach(func(key any, _ *Node) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns the node's direct child values.
func (n *Node) Values() []any {
	var vals []any
	n.ForEach(func(_ any, child *Node) bool {
		vals = append(vals, child.Val())
		return true
	})
	return vals
}

// Entry pairs a child key with its node, used by Entries.
type Entry struct {
	Key   any
	Child *Node
}

// Entries returns the node's direct (key, child) pairs.
func (n *Node) Entries() []Entry {
	var out []Entry
	n.ForEach(func(key any, child *Node) bool {
		out = append(out, Entry{Key: key, Child: child})
		return true
	})
	return out
}

// ToArray returns the node's children as a slice of values, sorted by
// less if given (less follows sort.Slice's less-than convention).
func (n *Node) ToArray(less func(a, b any) bool) []any {
	vals := n.Values()
	if less != nil {
		sort.Slice(vals, func(i, j int) bool { return less(vals[i], vals[j]) })
	}
	return vals
}

// OnChanged installs a change handler scoped to this node (spec.md
// §4.8.3); see Proxy.OnChanged.
func (n *Node) OnChanged(cb func(newVal, oldVal any) bool) func() {
	return n.p.OnChanged(n.target, cb)
}

// Subscribe emits the node's current value, then every future value
// on change, until the returned stop function is called.
func (n *Node) Subscribe(cb func(val any)) func() {
	cb(n.Val())
	return n.OnChanged(func(newVal, _ any) bool {
		cb(newVal)
		return true
	})
}

// GetObservable wraps Subscribe in an Observable (spec.md §4.8.5).
func (n *Node) GetObservable() *observable.Observable[any] {
	return observable.NewFromProvider(func(pub func(any), _ func()) func() {
		return n.Subscribe(pub)
	})
}

// StartTransaction begins a transaction scoped to this node; see
// Proxy.StartTransaction.
func (n *Node) StartTransaction(ctx context.Context) (*Transaction, error) {
	return n.p.startTransaction(ctx, n.target)
}

// GetOrderedCollection wraps this node's map-valued children as an
// OrderedCollectionProxy (spec.md §4.8.5).
func (n *Node) GetOrderedCollection(orderProperty string, orderIncrement int) *OrderedCollectionProxy {
	return newOrderedCollectionProxy(n, orderProperty, orderIncrement)
}
