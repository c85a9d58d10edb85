package acebase

import (
	"context"
	"log"
	"strings"

	"github.com/acebase-go/acebase-core/pkg/eventstream"
	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

// EventPayload is what a subscriber callback receives. Exactly one of
// Snapshot/Mutations/Ref is populated, selected by Kind.
type EventPayload struct {
	Kind      string // "snapshot" | "mutations" | "reference" | "removed"
	Snapshot  *DataSnapshot
	Mutations *MutationsDataSnapshot
	Ref       *DataReference
	Vars      map[string]any
}

// OnOptions configures a subscription (spec.md §4.7.1). On honours
// NewOnly; SyncFallback is accepted but never read or invoked.
type OnOptions struct {
	NewOnly      bool
	SyncFallback any // "reload" or func() error
}

type subscription struct {
	event  string
	bridge storageapi.BridgeCallback
	stream *eventstream.Stream[any]
}

// On appends {event, stream, bridgeCallback} to the reference's
// subscriptions and returns the underlying subscription handle.
// Wildcard references force newOnly.
func (r *DataReference) On(ctx context.Context, event string, userCb func(payload *EventPayload), cancelCb func(reason string), opts ...OnOptions) (*eventstream.Subscription[any], error) {
	var o OnOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	newOnly := o.NewOnly || hasWildcard(r.p)

	var pub *eventstream.Publisher[any]
	stream := eventstream.New(func(p *eventstream.Publisher[any]) { pub = p })
	bridge := r.buildBridge(event, pub)

	sub := &subscription{event: event, bridge: bridge, stream: stream}
	r.subsMu.Lock()
	r.subs = append(r.subs, sub)
	r.subsMu.Unlock()

	pub.Start(func() {
		_ = r.db.Storage.Unsubscribe(context.Background(), r.p.Path(), event, bridge)
		r.removeSub(sub)
	})

	if err := r.db.Storage.Subscribe(ctx, r.p.Path(), event, bridge); err != nil {
		pub.Cancel(err.Error())
	}

	handle, err := stream.Subscribe(func(v any) {
		if p, ok := v.(*EventPayload); ok {
			userCb(p)
		}
	}, func(active bool, reason string) {
		if !active && cancelCb != nil {
			cancelCb(reason)
		}
	})
	if err != nil {
		return nil, err
	}

	if !newOnly {
		r.backfill(ctx, event, pub)
	}
	return handle, nil
}

// Off finds subscriptions matching event (every subscription if event
// is ""), stops their streams, and logs a warning when nothing
// matched.
func (r *DataReference) Off(event string) {
	r.subsMu.Lock()
	var matched []*subscription
	kept := r.subs[:0:0]
	for _, s := range r.subs {
		if event == "" || s.event == event {
			matched = append(matched, s)
		} else {
			kept = append(kept, s)
		}
	}
	r.subs = kept
	r.subsMu.Unlock()

	if len(matched) == 0 {
		log.Printf("acebase: Off(%q) found no matching subscription on %s", event, r.p.Path())
		return
	}
	for _, s := range matched {
		s.stream.Stop()
	}
}

func (r *DataReference) removeSub(target *subscription) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	kept := r.subs[:0:0]
	for _, s := range r.subs {
		if s != target {
			kept = append(kept, s)
		}
	}
	r.subs = kept
}

// buildBridge translates raw (path, newValue, oldValue, context)
// storage notifications into the user-visible payload shape for
// event, threading the cursor back into r and extracting wildcard
// variable bindings from the notified path.
func (r *DataReference) buildBridge(event string, pub *eventstream.Publisher[any]) storageapi.BridgeCallback {
	return func(notifiedPathStr string, newValue, oldValue any, sctx storageapi.Context) {
		notifiedPath, err := path.Get(notifiedPathStr)
		if err != nil {
			return
		}
		vars := path.ExtractVariables(r.p, notifiedPath).Named
		r.setCursor(cursorFrom(sctx))
		childRef := r.db.RefFromPath(notifiedPath)

		var payload *EventPayload
		switch {
		case event == "child_removed":
			val, _ := r.db.Types.Deserialize(oldValue, notifiedPath, identitySnap)
			payload = &EventPayload{Kind: "snapshot", Snapshot: newSnapshotWithPrevious(childRef, nil, val, sctx), Vars: vars}
		case event == "mutations":
			recs, _ := newValue.([]storageapi.MutationRecord)
			payload = &EventPayload{Kind: "mutations", Mutations: newMutationsSnapshot(childRef, recs, sctx), Vars: vars}
		case event == "mutated" && newValue == nil:
			payload = &EventPayload{Kind: "removed", Ref: childRef, Vars: vars}
		case strings.HasPrefix(event, "notify_"):
			payload = &EventPayload{Kind: "reference", Ref: childRef, Vars: vars}
		default:
			val, derr := r.db.Types.Deserialize(newValue, notifiedPath, identitySnap)
			if derr != nil {
				val = newValue
			}
			payload = &EventPayload{Kind: "snapshot", Snapshot: newSnapshot(childRef, val, sctx), Vars: vars}
		}
		pub.Publish(payload)
	}
}

// backfill issues synthetic initial events after activation for the
// event kinds that support it (spec.md §4.7.1).
func (r *DataReference) backfill(ctx context.Context, event string, pub *eventstream.Publisher[any]) {
	switch event {
	case "value":
		snap, err := r.Get(ctx, storageapi.GetOptions{})
		if err == nil {
			pub.Publish(&EventPayload{Kind: "snapshot", Snapshot: snap})
		}
	case "child_added":
		snap, err := r.Get(ctx, storageapi.GetOptions{})
		if err != nil {
			return
		}
		snap.ForEach(func(child *DataSnapshot) bool {
			pub.Publish(&EventPayload{Kind: "snapshot", Snapshot: child})
			return true
		})
	case "notify_child_added":
		skip := 0
		for {
			res, err := r.Reflect(ctx, storageapi.ReflectChildren, storageapi.ReflectArgs{Limit: 100, Skip: skip})
			if err != nil {
				return
			}
			for _, c := range res.List {
				childRef, err := r.Child(c.Key)
				if err != nil {
					continue
				}
				pub.Publish(&EventPayload{Kind: "reference", Ref: childRef})
			}
			if !res.More {
				return
			}
			skip += len(res.List)
		}
	}
}
