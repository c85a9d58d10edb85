package proxy

import (
	"context"

	"github.com/acebase-go/acebase-core/pkg/diff"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

func cloneOrSelf(v any) any {
	cp, err := diff.CloneObject(v)
	if err != nil {
		return v
	}
	return cp
}

// onRemoteMutations is the "mutations" subscription callback (spec.md
// §4.8.2). It ignores self-caused batches (stamped with this proxy's
// own id), applies every other mutation to the cache, and republishes
// each as a remote "mutation" event plus a cursor update.
func (p *Proxy) onRemoteMutations(payload MutationsPayload) {
	if origin, ok := payload.Context[storageapi.CtxProxyKey].(storageapi.ProxyOrigin); ok && origin.ID == p.id {
		return
	}

	drifted := false
	for _, m := range payload.Mutations {
		p.mu.Lock()
		if !p.applyChange(m.Target, m.Val) {
			p.mu.Unlock()
			drifted = true
			break
		}
		p.mu.Unlock()
		_ = p.events.Emit("mutation", MutationView{Target: m.Target, Val: m.Val, Prev: m.Prev, IsRemote: true})
	}

	if drifted {
		go func() { _ = p.Reload(context.Background()) }()
		return
	}

	if cursor, ok := payload.Context[storageapi.CtxCursorKey].(string); ok && cursor != "" {
		p.mu.Lock()
		p.cursor = cursor
		p.mu.Unlock()
		_ = p.events.Emit("cursor", cursor)
	}
	p.localBus.Emit("batch", localBatch{origin: "remote", mutations: payload.Mutations})
}

// applyChange writes val at target within the cache. It creates
// missing intermediate containers only when the proxy's root was null
// at load time; otherwise a missing ancestor is treated as cache
// drift and applyChange reports false so the caller schedules a full
// reload (spec.md §4.8.2 step 2, and §9's note that the documented
// fallback-to-reload behavior is authoritative). Caller holds p.mu.
func (p *Proxy) applyChange(target []any, val any) bool {
	if len(target) == 0 {
		p.cache.root = val
		p.hasValue = val != nil
		return true
	}
	if !p.rootWasNull {
		parent := getAt(p.cache, target[:len(target)-1])
		_, isMap := parent.(map[string]any)
		_, isArr := parent.([]any)
		if !isMap && !isArr && len(target) > 1 {
			return false
		}
	}
	setAt(p.cache, target, val)
	return true
}

func (p *Proxy) onIntakeCanceled(reason string) {
	_ = p.events.Emit("error", ErrorEvent{Source: "mutations", Err: &cancelError{reason: reason}})
}

type cancelError struct{ reason string }

func (e *cancelError) Error() string { return "proxy mutation subscription canceled: " + e.reason }

// OnChanged installs a handler scoped to target (spec.md §4.8.3). It
// is invoked on every local or remote mutation batch whose target
// shares target's prefix, with derived (newVal, oldVal) pairs. If cb
// returns false, the handler is removed.
func (p *Proxy) OnChanged(target []any, cb func(newVal, oldVal any) bool) func() {
	var handler func(data any)
	var stop func()
	handler = func(data any) {
		b, ok := data.(localBatch)
		if !ok {
			return
		}
		newVal, oldVal, matched := p.deriveChange(target, b.mutations)
		if !matched {
			return
		}
		if !cb(newVal, oldVal) {
			stop()
		}
	}
	stop = func() { p.localBus.Off("batch", handler) }
	p.localBus.On("batch", handler)
	return stop
}

// deriveChange implements the two branches of spec.md §4.8.3: a
// single mutation at or above scope yields its val/prev walked down to
// scope; multiple mutations strictly below scope are replayed onto
// cloned copies of the current cached subtree.
func (p *Proxy) deriveChange(scope []any, mutations []MutationEvent) (newVal, oldVal any, matched bool) {
	var inScope []MutationEvent
	for _, m := range mutations {
		if targetSharesPrefix(scope, m.Target) {
			inScope = append(inScope, m)
		}
	}
	if len(inScope) == 0 {
		return nil, nil, false
	}

	if len(inScope) == 1 && len(inScope[0].Target) <= len(scope) {
		m := inScope[0]
		trail := scope[len(m.Target):]
		return getAt(&box{root: m.Val}, trail), getAt(&box{root: m.Prev}, trail), true
	}

	p.mu.Lock()
	current := getAt(p.cache, scope)
	p.mu.Unlock()
	newBox := &box{root: cloneOrSelf(current)}
	oldBox := &box{root: cloneOrSelf(current)}
	for _, m := range inScope {
		rel := m.Target[len(scope):]
		setAt(newBox, rel, m.Val)
		setAt(oldBox, rel, m.Prev)
	}
	return newBox.root, oldBox.root, true
}
