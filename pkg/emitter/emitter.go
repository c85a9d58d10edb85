// Package emitter implements the latching event emitter described in
// spec.md §4.5: conventional on/off/once plus emitOnce, which latches
// an event so that every later on/once caller is invoked synchronously
// with the stored value.
package emitter

import (
	"log"
	"reflect"
	"sync"

	"github.com/acebase-go/acebase-core/pkg/acerr"
)

type listener struct {
	callback func(data any)
	once     bool
}

// Emitter is a SimpleEventEmitter: per-event listener lists, with
// support for latching an event permanently via EmitOnce.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*listener
	latched   map[string]any
}

// New constructs an empty Emitter.
func New() *Emitter {
	return &Emitter{
		listeners: map[string][]*listener{},
		latched:   map[string]any{},
	}
}

// On registers callback for every future emission of event. If event
// is already latched, callback is invoked synchronously with the
// stored value instead of being registered.
func (e *Emitter) On(event string, callback func(data any)) {
	e.add(event, callback, false)
}

// Once registers callback for the next emission of event only. If
// event is already latched, callback is invoked synchronously with
// the stored value instead of being registered.
func (e *Emitter) Once(event string, callback func(data any)) {
	e.add(event, callback, true)
}

func (e *Emitter) add(event string, callback func(data any), once bool) {
	e.mu.Lock()
	if data, ok := e.latched[event]; ok {
		e.mu.Unlock()
		invokeSafely(event, func() { callback(data) })
		return
	}
	e.listeners[event] = append(e.listeners[event], &listener{callback: callback, once: once})
	e.mu.Unlock()
}

// Off removes listeners registered for event. If callback is nil,
// every listener for event is removed; otherwise only listeners whose
// callback matches by function identity are removed.
func (e *Emitter) Off(event string, callback func(data any)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if callback == nil {
		delete(e.listeners, event)
		return
	}
	target := reflect.ValueOf(callback).Pointer()
	kept := e.listeners[event][:0:0]
	for _, l := range e.listeners[event] {
		if reflect.ValueOf(l.callback).Pointer() != target {
			kept = append(kept, l)
		}
	}
	e.listeners[event] = kept
}

// Emit invokes every listener registered for event with data. Exceptions
// raised by a listener are logged and swallowed. Once-listeners are
// removed after firing. Emitting a latched event raises
// EventAlreadyOnceError.
func (e *Emitter) Emit(event string, data any) error {
	e.mu.Lock()
	if _, ok := e.latched[event]; ok {
		e.mu.Unlock()
		return &acerr.EventAlreadyOnceError{Base: acerr.Base{Op: "Emitter.Emit"}, Event: event}
	}
	ls := make([]*listener, len(e.listeners[event]))
	copy(ls, e.listeners[event])
	remaining := ls[:0:0]
	for _, l := range ls {
		if !l.once {
			remaining = append(remaining, l)
		}
	}
	e.listeners[event] = remaining
	e.mu.Unlock()

	for _, l := range ls {
		invokeSafely(event, func() { l.callback(data) })
	}
	return nil
}

// EmitOnce emits event normally, then latches it: the event is
// recorded as already fired, every listener is removed, and every
// subsequent On/Once call for event is invoked synchronously with
// data. A further Emit/EmitOnce on a latched event raises
// EventAlreadyOnceError.
func (e *Emitter) EmitOnce(event string, data any) error {
	e.mu.Lock()
	if _, ok := e.latched[event]; ok {
		e.mu.Unlock()
		return &acerr.EventAlreadyOnceError{Base: acerr.Base{Op: "Emitter.EmitOnce"}, Event: event}
	}
	ls := make([]*listener, len(e.listeners[event]))
	copy(ls, e.listeners[event])
	delete(e.listeners, event)
	e.latched[event] = data
	e.mu.Unlock()

	for _, l := range ls {
		invokeSafely(event, func() { l.callback(data) })
	}
	return nil
}

func invokeSafely(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("emitter: listener for %q panicked: %v", event, r)
		}
	}()
	fn()
}
