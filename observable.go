package roomsync

import "sync"

// Observable is a mutable cell that notifies subscribers synchronously on
// every Set, whether or not the value changed. Subscribers run outside the
// cell lock, in subscription order, so they may call Get. Concurrent Set calls
// must be serialized by the owner for notifications to arrive in order.
type Observable[T any] struct {
	mu          sync.RWMutex
	value       T
	nextID      int
	subscribers []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// NewObservable returns a cell holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set replaces the value and notifies every subscriber.
func (o *Observable[T]) Set(value T) {
	o.mu.Lock()
	o.value = value
	subscribers := make([]subscription[T], len(o.subscribers))
	copy(subscribers, o.subscribers)
	o.mu.Unlock()

	for _, sub := range subscribers {
		sub.fn(value)
	}
}

// Subscribe registers fn for future values. The returned function removes the
// subscription and is safe to call more than once.
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.subscribers = append(o.subscribers, subscription[T]{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, sub := range o.subscribers {
				if sub.id == id {
					o.subscribers = append(o.subscribers[:i:i], o.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers reports the number of registered subscribers.
func (o *Observable[T]) Subscribers() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subscribers)
}
