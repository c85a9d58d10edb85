package proxy

import (
	"context"
	"time"

	"github.com/acebase-go/acebase-core/pkg/diff"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

// flagWrite enqueues a mutation at target unless one is already
// pending for that exact target, records the value before this write
// as its rollback point, and schedules a sync tick (spec.md §4.8 "flag
// dispatches: write").
func (p *Proxy) flagWrite(target []any) {
	p.mu.Lock()
	for _, m := range p.mutQueue {
		if targetEqual(m.target, target) {
			p.mu.Unlock()
			p.scheduleSync()
			return
		}
	}
	prevClone, err := diff.CloneObject(getAt(p.cache, target))
	if err != nil {
		prevClone = nil
	}
	p.mutQueue = append(p.mutQueue, &queuedMutation{target: cloneTarget(target), previous: prevClone})
	p.mu.Unlock()
	p.scheduleSync()
}

// scheduleSync coalesces same-tick writes: the first flag in a batch
// starts a zero-delay timer; subsequent flags before it fires are a
// no-op, mirroring a microtask-queue tick.
func (p *Proxy) scheduleSync() {
	p.syncMu.Lock()
	if p.syncPending {
		p.syncMu.Unlock()
		return
	}
	p.syncPending = true
	p.syncDone = make(chan struct{})
	p.syncMu.Unlock()

	time.AfterFunc(0, func() {
		p.runTick()
		p.syncMu.Lock()
		p.syncPending = false
		done := p.syncDone
		p.syncMu.Unlock()
		close(done)
	})
}

// awaitSync blocks until any in-flight tick completes.
func (p *Proxy) awaitSync() {
	p.syncMu.Lock()
	pending := p.syncPending
	done := p.syncDone
	p.syncMu.Unlock()
	if pending {
		<-done
	}
}

// runTick is pushLocalMutations (spec.md §4.8.1): it drains every
// queued mutation not currently held back by an active transaction
// scope, publishes local "mutation"/batch events, compresses shadowed
// targets, groups the remainder into one write per parent, and
// executes those writes serially against storage.
func (p *Proxy) runTick() {
	ctx := context.Background()

	p.mu.Lock()
	var batch, remaining []*queuedMutation
	for _, m := range p.mutQueue {
		if p.scopedByTransaction(m.target) {
			remaining = append(remaining, m)
		} else {
			batch = append(batch, m)
		}
	}
	p.mutQueue = remaining
	if len(batch) == 0 {
		p.mu.Unlock()
		return
	}

	events := make([]MutationEvent, len(batch))
	for i, m := range batch {
		val := getAt(p.cache, m.target)
		events[i] = MutationEvent{Target: m.target, Val: val, Prev: m.previous}
	}
	p.mu.Unlock()

	for _, ev := range events {
		_ = p.events.Emit("mutation", MutationView{Target: ev.Target, Val: ev.Val, Prev: ev.Prev})
	}
	p.localBus.Emit("batch", localBatch{origin: "local", mutations: events})

	compressed := compressMutations(batch)
	groups := groupByParent(compressed)

	wctx := storageapi.Context{storageapi.CtxProxyKey: storageapi.ProxyOrigin{ID: p.id, Source: "set"}}
	for _, g := range groups {
		var err error
		if len(g.target) == 0 {
			wctx[storageapi.CtxProxyKey] = storageapi.ProxyOrigin{ID: p.id, Source: "set"}
			err = p.ref.SetWithContext(ctx, getAt(p.cache, nil), wctx)
		} else {
			parentRef, rerr := p.childRef(g.target)
			if rerr != nil {
				err = rerr
			} else {
				updates := map[string]any{}
				for _, child := range g.children {
					key, _ := child.key.(string)
					updates[key] = getAt(p.cache, appendTarget(g.target, child.key))
				}
				wctx[storageapi.CtxProxyKey] = storageapi.ProxyOrigin{ID: p.id, Source: "update"}
				err = parentRef.UpdateWithContext(ctx, updates, wctx)
			}
		}
		if err != nil {
			p.rollbackGroup(g)
			_ = p.events.Emit("error", ErrorEvent{Source: "update", Err: err})
			continue
		}
		p.mu.Lock()
		p.cursor = p.ref.Cursor()
		cur := p.cursor
		p.mu.Unlock()
		_ = p.events.Emit("cursor", cur)
	}
}

func (p *Proxy) childRef(target []any) (Ref, error) {
	r := p.ref
	for _, k := range target {
		var err error
		r, err = r.Child(k)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// rollbackGroup restores every mutation in a failed write group to
// its pre-flag value and republishes the reversal (spec.md §4.8.1
// step 7).
func (p *Proxy) rollbackGroup(g mutationGroup) {
	var reversed []MutationEvent
	for _, child := range g.children {
		target := appendTarget(g.target, child.key)
		p.mu.Lock()
		attempted := getAt(p.cache, target)
		setAt(p.cache, target, child.previous)
		p.mu.Unlock()
		reversed = append(reversed, MutationEvent{Target: target, Val: child.previous, Prev: attempted})
	}
	if len(g.children) == 0 {
		p.mu.Lock()
		attempted := getAt(p.cache, g.target)
		setAt(p.cache, g.target, g.rootPrevious)
		p.mu.Unlock()
		reversed = append(reversed, MutationEvent{Target: g.target, Val: g.rootPrevious, Prev: attempted})
	}
	for _, ev := range reversed {
		_ = p.events.Emit("mutation", MutationView{Target: ev.Target, Val: ev.Val, Prev: ev.Prev})
	}
	p.localBus.Emit("batch", localBatch{origin: "local", mutations: reversed})
}

type mutationGroup struct {
	target       []any
	children     []groupChild
	rootPrevious any
}

type groupChild struct {
	key      any
	previous any
}

// compressMutations removes any mutation shadowed by an ancestor
// mutation already in the batch, keeping only outermost targets.
func compressMutations(batch []*queuedMutation) []*queuedMutation {
	out := make([]*queuedMutation, 0, len(batch))
	for _, m := range batch {
		shadowed := false
		for _, other := range batch {
			if other != m && targetIsAncestor(other.target, m.target) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			out = append(out, m)
		}
	}
	return out
}

// groupByParent groups mutations by parent target: a root-level
// mutation becomes its own group with no children (a plain Set); every
// other mutation is grouped with its siblings under their shared
// parent (an Update).
func groupByParent(batch []*queuedMutation) []mutationGroup {
	var groups []mutationGroup
	byParent := map[string]*mutationGroup{}
	var order []string

	for _, m := range batch {
		if len(m.target) == 0 {
			groups = append(groups, mutationGroup{target: nil, rootPrevious: m.previous})
			continue
		}
		parent := m.target[:len(m.target)-1]
		key := m.target[len(m.target)-1]
		pk := renderTarget(parent)
		g, ok := byParent[pk]
		if !ok {
			g = &mutationGroup{target: parent}
			byParent[pk] = g
			order = append(order, pk)
		}
		g.children = append(g.children, groupChild{key: key, previous: m.previous})
	}
	for _, pk := range order {
		groups = append(groups, *byParent[pk])
	}
	return groups
}

func renderTarget(t []any) string {
	s := ""
	for i, k := range t {
		if i > 0 {
			s += "/"
		}
		switch v := k.(type) {
		case string:
			s += v
		case int:
			s += "#"
		}
	}
	return s
}

// scopedByTransaction reports whether target is held back by an active
// transaction: the transaction's scope equals or is an ancestor of
// target. A transaction never holds back a mutation at a shallower,
// unrelated path (that case is rejected up front at StartTransaction).
func (p *Proxy) scopedByTransaction(target []any) bool {
	for _, tx := range p.transactions {
		if tx.status == "started" && (targetEqual(tx.target, target) || targetIsAncestor(tx.target, target)) {
			return true
		}
	}
	return false
}
