// Package derived holds state computed from other resources: aggregates
// rebuilt wholesale from an upstream payload, forwarded view-state, and the
// propagators that write them.
package derived

import (
	"cmp"
	"slices"
	"sync"
)

// Set is a derived aggregate. It has no lifecycle of its own: it starts
// empty and is only ever replaced wholesale or cleared. Many readers, one
// writer (its propagator).
type Set[K comparable] struct {
	mu        sync.RWMutex
	items     map[K]struct{}
	observers map[int]func([]K)
	nextObs   int
}

func NewSet[K comparable]() *Set[K] {
	return &Set[K]{
		items:     make(map[K]struct{}),
		observers: make(map[int]func([]K)),
	}
}

// ReplaceAll discards the current members and installs keys.
func (s *Set[K]) ReplaceAll(keys []K) {
	next := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		next[k] = struct{}{}
	}
	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
	s.notify()
}

func (s *Set[K]) Clear() {
	s.ReplaceAll(nil)
}

func (s *Set[K]) Contains(k K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[k]
	return ok
}

func (s *Set[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns the members in no particular order.
func (s *Set[K]) Snapshot() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]K, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}

// Subscribe registers fn for every replacement. The returned func removes it.
func (s *Set[K]) Subscribe(fn func([]K)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Set[K]) notify() {
	s.mu.RLock()
	fns := make([]func([]K), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Sorted returns the members of s in ascending order.
func Sorted[K cmp.Ordered](s *Set[K]) []K {
	out := s.Snapshot()
	slices.Sort(out)
	return out
}
