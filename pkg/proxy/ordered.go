package proxy

import (
	"sort"

	"github.com/acebase-go/acebase-core/internal/observable"
)

// OrderedCollectionProxy wraps a Node whose value is an object
// collection (map from id to object) and maintains an explicit order
// property on each child, so the collection can be rendered and
// reordered as an array despite having no intrinsic order (spec.md
// §4.8.5).
type OrderedCollectionProxy struct {
	node           *Node
	orderProperty  string
	orderIncrement int
}

func newOrderedCollectionProxy(node *Node, orderProperty string, orderIncrement int) *OrderedCollectionProxy {
	if orderProperty == "" {
		orderProperty = "order"
	}
	if orderIncrement == 0 {
		orderIncrement = 10
	}
	o := &OrderedCollectionProxy{node: node, orderProperty: orderProperty, orderIncrement: orderIncrement}
	o.ensureOrdered()
	return o
}

type orderedEntry struct {
	key   any
	order float64
}

func (o *OrderedCollectionProxy) entries() []orderedEntry {
	var out []orderedEntry
	o.node.ForEach(func(key any, child *Node) bool {
		v, _ := child.Val().(map[string]any)
		ord, _ := v[o.orderProperty].(float64)
		out = append(out, orderedEntry{key: key, order: ord})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// ensureOrdered assigns i*orderIncrement to any child currently
// lacking orderProperty, in the collection's current iteration order.
func (o *OrderedCollectionProxy) ensureOrdered() {
	i := 0
	missing := false
	o.node.ForEach(func(key any, child *Node) bool {
		v, ok := child.Val().(map[string]any)
		if !ok {
			return true
		}
		if _, has := v[o.orderProperty]; !has {
			missing = true
		}
		return true
	})
	if !missing {
		return
	}
	o.node.ForEach(func(key any, child *Node) bool {
		v, ok := child.Val().(map[string]any)
		if !ok {
			return true
		}
		if _, has := v[o.orderProperty]; !has {
			v[o.orderProperty] = float64(i * o.orderIncrement)
			_ = child.Set(v)
		}
		i++
		return true
	})
}

// GetArray returns the collection's values sorted by orderProperty.
func (o *OrderedCollectionProxy) GetArray() []any {
	var out []any
	for _, e := range o.entries() {
		out = append(out, o.node.Child(e.key).Val())
	}
	return out
}

// Add inserts item at the given sorted index (appending if index is
// nil), or moves an existing entry there if from is non-empty.
func (o *OrderedCollectionProxy) Add(key any, item map[string]any, index *int, from any) error {
	entries := o.entries()

	if from != nil {
		o.move(entries, from, index)
		return nil
	}

	var newOrder float64
	switch {
	case len(entries) == 0:
		newOrder = 0
	case index == nil || *index >= len(entries):
		newOrder = entries[len(entries)-1].order + float64(o.orderIncrement)
	case *index <= 0:
		newOrder = entries[0].order - float64(o.orderIncrement)
	default:
		before, after := entries[*index-1].order, entries[*index].order
		if after-before <= 1 {
			o.resequence(entries)
			entries = o.entries()
			before, after = entries[*index-1].order, entries[*index].order
		}
		newOrder = (before + after) / 2
	}

	clone := map[string]any{}
	for k, v := range item {
		clone[k] = v
	}
	clone[o.orderProperty] = newOrder
	return o.node.Child(key).Set(clone)
}

func (o *OrderedCollectionProxy) move(entries []orderedEntry, from any, toIndex *int) {
	fromIdx := -1
	for i, e := range entries {
		if e.key == from {
			fromIdx = i
			break
		}
	}
	if fromIdx == -1 || toIndex == nil {
		return
	}
	to := *toIndex
	if to == fromIdx {
		return
	}
	if (to == fromIdx-1 || to == fromIdx+1) && to >= 0 && to < len(entries) {
		entries[fromIdx].order, entries[to].order = entries[to].order, entries[fromIdx].order
		_ = o.writeOrder(entries[fromIdx])
		_ = o.writeOrder(entries[to])
		return
	}

	rest := make([]orderedEntry, 0, len(entries)-1)
	rest = append(rest, entries[:fromIdx]...)
	rest = append(rest, entries[fromIdx+1:]...)
	if len(rest) == 0 {
		return
	}
	var newOrder float64
	switch {
	case to <= 0:
		newOrder = rest[0].order - float64(o.orderIncrement)
	case to >= len(rest):
		newOrder = rest[len(rest)-1].order + float64(o.orderIncrement)
	default:
		newOrder = (rest[to-1].order + rest[to].order) / 2
	}
	entries[fromIdx].order = newOrder
	_ = o.writeOrder(entries[fromIdx])
}

func (o *OrderedCollectionProxy) writeOrder(e orderedEntry) error {
	child := o.node.Child(e.key)
	v, _ := child.Val().(map[string]any)
	if v == nil {
		v = map[string]any{}
	}
	v[o.orderProperty] = e.order
	return child.Set(v)
}

// Delete removes the entry at the given sorted position.
func (o *OrderedCollectionProxy) Delete(index int) error {
	entries := o.entries()
	if index < 0 || index >= len(entries) {
		return nil
	}
	return o.node.Child(entries[index].key).Remove()
}

// Move relocates the entry at from to to, delegating to Add.
func (o *OrderedCollectionProxy) Move(from, to int) error {
	entries := o.entries()
	if from < 0 || from >= len(entries) {
		return nil
	}
	key := entries[from].key
	return o.Add(key, nil, &to, key)
}

// Sort re-sequences every entry by position*increment after sorting by
// less.
func (o *OrderedCollectionProxy) Sort(less func(a, b any) bool) {
	entries := o.entries()
	vals := make([]any, len(entries))
	for i, e := range entries {
		vals[i] = o.node.Child(e.key).Val()
	}
	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(vals[idx[i]], vals[idx[j]]) })
	sorted := make([]orderedEntry, len(entries))
	for i, k := range idx {
		sorted[i] = entries[k]
	}
	o.resequence(sorted)
}

func (o *OrderedCollectionProxy) resequence(entries []orderedEntry) {
	for i, e := range entries {
		e.order = float64(i * o.orderIncrement)
		_ = o.writeOrder(e)
	}
}

// GetObservable streams the collection's raw map value, now and on
// every change (see Node.GetObservable).
func (o *OrderedCollectionProxy) GetObservable() *observable.Observable[any] {
	return o.node.GetObservable()
}

// GetArrayObservable is like GetObservable, but emits GetArray()
// snapshots instead of the raw map value.
func (o *OrderedCollectionProxy) GetArrayObservable() *observable.Observable[any] {
	return observable.NewFromProvider(func(pub func(any), _ func()) func() {
		pub(o.GetArray())
		return o.node.OnChanged(func(_, _ any) bool {
			pub(o.GetArray())
			return true
		})
	})
}
