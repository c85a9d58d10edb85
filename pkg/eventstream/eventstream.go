// Package eventstream implements the small observable primitive
// described in spec.md §4.4: lazy start, per-subscriber activation
// callbacks, and producer-initiated cancellation with a reason.
package eventstream

import (
	"log"
	"reflect"
	"sync"

	"github.com/acebase-go/acebase-core/pkg/acerr"
)

type state int

const (
	stateInit state = iota
	stateActive
	stateCanceled
	stateStopped
)

// ActivationCallback is notified once a stream activates (true, ""),
// or is canceled/denied (false, reason).
type ActivationCallback func(active bool, reason string)

// Stream is an EventStream<T>: a publisher-driven sequence of values
// with lazy activation and multi-subscriber fan-out.
type Stream[T any] struct {
	mu                sync.Mutex
	st                state
	cancelReason      string
	subscribers       []*Subscription[T]
	onAllUnsubscribed func()
}

// Publisher is the producer-side handle passed to the stream's
// initialization function.
type Publisher[T any] struct {
	s *Stream[T]
}

// Subscription is returned by Subscribe; Stop() removes exactly this
// subscriber.
type Subscription[T any] struct {
	stream             *Stream[T]
	callback           func(T)
	activationCallback ActivationCallback
}

// New constructs a Stream and immediately invokes init with the
// stream's Publisher, so the caller can decide when to Start or
// Cancel it (including lazily, on first subscriber).
func New[T any](init func(pub *Publisher[T])) *Stream[T] {
	s := &Stream[T]{}
	if init != nil {
		init(&Publisher[T]{s: s})
	}
	return s
}

// Publish delivers value to every current subscriber and reports
// whether there were any. Panics raised by a subscriber callback are
// recovered, logged, and do not affect other subscribers.
func (p *Publisher[T]) Publish(value T) bool {
	p.s.mu.Lock()
	subs := make([]*Subscription[T], len(p.s.subscribers))
	copy(subs, p.s.subscribers)
	p.s.mu.Unlock()

	for _, sub := range subs {
		invokeSafely(func() { sub.callback(value) })
	}
	return len(subs) > 0
}

// Start activates the stream: the init-state transitions to active,
// onAllUnsubscribed is registered for when the last subscriber
// leaves, and every currently-waiting subscriber's activation
// callback fires with (true, "").
func (p *Publisher[T]) Start(onAllUnsubscribed func()) {
	p.s.mu.Lock()
	if p.s.st != stateInit {
		p.s.mu.Unlock()
		return
	}
	p.s.st = stateActive
	p.s.onAllUnsubscribed = onAllUnsubscribed
	subs := make([]*Subscription[T], len(p.s.subscribers))
	copy(subs, p.s.subscribers)
	p.s.mu.Unlock()

	for _, sub := range subs {
		if sub.activationCallback != nil {
			invokeSafely(func() { sub.activationCallback(true, "") })
		}
	}
}

// Cancel transitions the stream to canceled with reason, notifying
// every current subscriber's activation callback with (false, reason).
// Subsequent Subscribe calls are also rejected with this reason.
func (p *Publisher[T]) Cancel(reason string) {
	p.s.mu.Lock()
	p.s.st = stateCanceled
	p.s.cancelReason = reason
	subs := make([]*Subscription[T], len(p.s.subscribers))
	copy(subs, p.s.subscribers)
	p.s.mu.Unlock()

	for _, sub := range subs {
		if sub.activationCallback != nil {
			invokeSafely(func() { sub.activationCallback(false, reason) })
		}
	}
}

// Subscribe registers callback to receive future published values.
// activationCallback may be nil. Subscribing to a stopped stream
// raises StreamClosedError. Subscribing to a canceled stream succeeds
// but immediately invokes activationCallback(false, reason) if given.
// A subscriber arriving after activation receives the cached
// activation synchronously.
func (s *Stream[T]) Subscribe(callback func(T), activationCallback ActivationCallback) (*Subscription[T], error) {
	s.mu.Lock()
	if s.st == stateStopped {
		s.mu.Unlock()
		return nil, &acerr.StreamClosedError{Base: acerr.Base{Op: "Stream.Subscribe"}}
	}

	sub := &Subscription[T]{stream: s, callback: callback, activationCallback: activationCallback}
	s.subscribers = append(s.subscribers, sub)
	st := s.st
	reason := s.cancelReason
	s.mu.Unlock()

	if activationCallback != nil {
		switch st {
		case stateActive:
			invokeSafely(func() { activationCallback(true, "") })
		case stateCanceled:
			invokeSafely(func() { activationCallback(false, reason) })
		}
	}
	return sub, nil
}

// Stop removes exactly this subscriber. If it was the last one and
// the stream was active, the stream transitions to stopped and the
// publisher's onAllUnsubscribed callback fires.
func (sub *Subscription[T]) Stop() {
	sub.stream.removeSubscriber(sub)
}

// Unsubscribe removes every subscriber matching callback, or every
// subscriber if callback is nil.
func (s *Stream[T]) Unsubscribe(callback func(T)) {
	s.mu.Lock()
	var target uintptr
	if callback != nil {
		target = reflect.ValueOf(callback).Pointer()
	}
	kept := s.subscribers[:0:0]
	for _, sub := range s.subscribers {
		if callback != nil && reflect.ValueOf(sub.callback).Pointer() != target {
			kept = append(kept, sub)
		}
	}
	s.subscribers = kept
	s.maybeStopLocked()
	s.mu.Unlock()
}

// Stop removes every subscriber unconditionally.
func (s *Stream[T]) Stop() {
	s.Unsubscribe(nil)
}

func (s *Stream[T]) removeSubscriber(target *Subscription[T]) {
	s.mu.Lock()
	kept := s.subscribers[:0:0]
	for _, sub := range s.subscribers {
		if sub != target {
			kept = append(kept, sub)
		}
	}
	s.subscribers = kept
	s.maybeStopLocked()
	s.mu.Unlock()
}

// maybeStopLocked transitions an active stream with no remaining
// subscribers to stopped and fires onAllUnsubscribed. Caller must hold
// s.mu.
func (s *Stream[T]) maybeStopLocked() {
	if len(s.subscribers) == 0 && s.st == stateActive {
		s.st = stateStopped
		cb := s.onAllUnsubscribed
		if cb != nil {
			go invokeSafely(cb)
		}
	}
}

func invokeSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventstream: subscriber callback panicked: %v", r)
		}
	}()
	fn()
}
