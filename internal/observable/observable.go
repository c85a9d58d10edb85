// Package observable implements the default single-producer,
// multi-consumer Observable shim (spec.md §4.8.5, §9 "Global
// observable switch"): a provider interface registered once, falling
// back to an in-tree implementation whose producer starts on first
// subscription and stops on last unsubscription.
package observable

import "sync"

// Observer receives values and a terminal completion signal.
type Observer[T any] struct {
	Next     func(T)
	Complete func()
}

// Subscription is returned by Subscribe; Unsubscribe stops delivery.
type Subscription interface {
	Unsubscribe()
}

// Observable is a cold, multicast stream: its Subscribe func is called
// once per distinct producer lifecycle (started on the first
// subscriber, stopped after the last one leaves), and every active
// subscriber receives the same sequence of values.
type Observable[T any] struct {
	mu        sync.Mutex
	subscribe func(pub func(T), complete func())
	observers map[int]Observer[T]
	nextID    int
	stop      func()
	active    bool
}

// New builds an Observable whose producer is subscribe: it is called
// with pub/complete functions the first time a subscriber attaches,
// and must return a stop function invoked when the last subscriber
// detaches.
func New[T any](subscribe func(pub func(T), complete func()) func()) *Observable[T] {
	o := &Observable[T]{observers: map[int]Observer[T]{}}
	o.subscribe = func(pub func(T), complete func()) {
		o.stop = subscribe(pub, complete)
	}
	return o
}

// Subscribe attaches an observer, starting the producer if this is the
// first subscriber. The returned Subscription detaches it.
func (o *Observable[T]) Subscribe(next func(T), complete func()) Subscription {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.observers[id] = Observer[T]{Next: next, Complete: complete}
	first := !o.active
	o.active = true
	o.mu.Unlock()

	if first {
		o.subscribe(o.broadcast, o.broadcastComplete)
	}
	return &subscription[T]{o: o, id: id}
}

func (o *Observable[T]) broadcast(v T) {
	o.mu.Lock()
	obs := make([]Observer[T], 0, len(o.observers))
	for _, ob := range o.observers {
		obs = append(obs, ob)
	}
	o.mu.Unlock()
	for _, ob := range obs {
		if ob.Next != nil {
			ob.Next(v)
		}
	}
}

func (o *Observable[T]) broadcastComplete() {
	o.mu.Lock()
	obs := make([]Observer[T], 0, len(o.observers))
	for _, ob := range o.observers {
		obs = append(obs, ob)
	}
	o.mu.Unlock()
	for _, ob := range obs {
		if ob.Complete != nil {
			ob.Complete()
		}
	}
}

func (o *Observable[T]) unsubscribe(id int) {
	o.mu.Lock()
	delete(o.observers, id)
	last := len(o.observers) == 0
	if last {
		o.active = false
	}
	stop := o.stop
	o.mu.Unlock()

	if last && stop != nil {
		stop()
	}
}

type subscription[T any] struct {
	o  *Observable[T]
	id int
}

func (s *subscription[T]) Unsubscribe() { s.o.unsubscribe(s.id) }

// Provider supplies the Observable constructor the kernel should use.
// Registering a host-global or RxJS-like provider takes precedence
// over the in-tree shim (spec.md §9 "Global observable switch").
type Provider func(subscribe func(pub func(any), complete func()) func()) *Observable[any]

var (
	providerMu sync.Mutex
	provider   Provider
)

// SetProvider installs a process-wide Observable provider, e.g. one
// backed by a host application's own reactive library.
func SetProvider(p Provider) {
	providerMu.Lock()
	provider = p
	providerMu.Unlock()
}

// NewFromProvider returns a new Observable via the installed provider,
// or the default in-tree shim (New) if none was registered.
func NewFromProvider(subscribe func(pub func(any), complete func()) func()) *Observable[any] {
	providerMu.Lock()
	p := provider
	providerMu.Unlock()
	if p != nil {
		return p(subscribe)
	}
	return New(subscribe)
}
