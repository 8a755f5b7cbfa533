package derived

import "sync"

// Value is an optional view-state slot: present with a value, or absent.
// It is the forwarding target that lets several screens read one fetched
// entity without fetching it again.
type Value[T any] struct {
	mu        sync.RWMutex
	v         T
	ok        bool
	observers map[int]func(T, bool)
	nextObs   int
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{observers: make(map[int]func(T, bool))}
}

func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.v, v.ok = x, true
	v.mu.Unlock()
	v.notify(x, true)
}

// Clear makes the value absent.
func (v *Value[T]) Clear() {
	var zero T
	v.mu.Lock()
	v.v, v.ok = zero, false
	v.mu.Unlock()
	v.notify(zero, false)
}

// Get returns the value and whether it is present.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v, v.ok
}

func (v *Value[T]) Subscribe(fn func(T, bool)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextObs++
	id := v.nextObs
	v.observers[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.observers, id)
		v.mu.Unlock()
	}
}

func (v *Value[T]) notify(x T, ok bool) {
	v.mu.RLock()
	fns := make([]func(T, bool), 0, len(v.observers))
	for _, fn := range v.observers {
		fns = append(fns, fn)
	}
	v.mu.RUnlock()
	for _, fn := range fns {
		fn(x, ok)
	}
}
