package acebase

import (
	"context"

	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/proxy"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

// refAdapter satisfies proxy.Ref by delegating to a *DataReference,
// letting pkg/acebase depend on pkg/proxy one-directionally: pkg/proxy
// never imports this package.
type refAdapter struct{ r *DataReference }

func (a refAdapter) Path() string   { return a.r.Path() }
func (a refAdapter) Key() any       { return a.r.Key() }
func (a refAdapter) Cursor() string { return a.r.Cursor() }

func (a refAdapter) Child(key any) (proxy.Ref, error) {
	c, err := a.r.Child(key)
	if err != nil {
		return nil, err
	}
	return refAdapter{c}, nil
}

func (a refAdapter) Get(ctx context.Context, opts storageapi.GetOptions) (proxy.Snapshot, error) {
	return a.r.Get(ctx, opts)
}

func (a refAdapter) SetWithContext(ctx context.Context, value any, wctx storageapi.Context) error {
	return a.r.SetWithContext(ctx, value, wctx)
}

func (a refAdapter) UpdateWithContext(ctx context.Context, updates any, wctx storageapi.Context) error {
	return a.r.UpdateWithContext(ctx, updates, wctx)
}

func (a refAdapter) Push(ctx context.Context, value any) (proxy.Ref, error) {
	c, err := a.r.Push(ctx, value)
	if err != nil {
		return nil, err
	}
	return refAdapter{c}, nil
}

func (a refAdapter) OnMutations(ctx context.Context, cb func(proxy.MutationsPayload), cancelCb func(reason string)) (proxy.Subscription, error) {
	sub, err := a.r.On(ctx, "mutations", func(p *EventPayload) {
		if p.Mutations == nil {
			cb(proxy.MutationsPayload{})
			return
		}
		var out []proxy.MutationEvent
		p.Mutations.ForEachMutation(func(_ int, snap *DataSnapshot, rec storageapi.MutationRecord) bool {
			target, _ := relativeTargetKeys(a.r.p.Path(), rec.Path)
			out = append(out, proxy.MutationEvent{Target: target, Val: rec.Value, Prev: rec.Previous})
			return true
		})
		cb(proxy.MutationsPayload{Mutations: out, Context: p.Mutations.Context()})
	}, cancelCb, OnOptions{SyncFallback: "reload"})
	if err != nil {
		return nil, err
	}
	return subStop{sub}, nil
}

type subStop struct {
	stop interface{ Stop() }
}

func (s subStop) Stop() { s.stop.Stop() }

// relativeTargetKeys computes rec.Path's keys relative to basePath, for
// translating an absolute mutation-log path into the proxy's own
// target-key convention.
func relativeTargetKeys(basePath, recPath string) ([]any, error) {
	base, err := path.Get(basePath)
	if err != nil {
		return nil, err
	}
	concrete, err := path.Get(recPath)
	if err != nil {
		return nil, err
	}
	baseKeys := base.Keys()
	concreteKeys := concrete.Keys()
	if len(concreteKeys) < len(baseKeys) {
		return nil, nil
	}
	rel := concreteKeys[len(baseKeys):]
	out := make([]any, len(rel))
	for i, k := range rel {
		out[i] = k.Raw()
	}
	return out, nil
}

// Proxy builds a LiveDataProxy bound to this reference (spec.md §4.8).
func (r *DataReference) Proxy(ctx context.Context, opts proxy.Options) (*proxy.Proxy, error) {
	if err := r.guardWildcard("DataReference.Proxy"); err != nil {
		return nil, err
	}
	return proxy.Create(ctx, refAdapter{r}, opts)
}
