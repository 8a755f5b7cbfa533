package resource

import "sync"

// StoreOption configures a Store at construction.
type StoreOption func(*storeConfig)

type storeConfig struct {
	initial Kind
	accepts map[Kind]bool
}

// Accepts enables domain-specific failure kinds (NotFound,
// InvalidCredentials) on a store. A failure of a kind the store does not
// accept is recorded as Error.
func Accepts(kinds ...Kind) StoreOption {
	return func(c *storeConfig) {
		for _, k := range kinds {
			c.accepts[k] = true
		}
	}
}

// StartIdle makes the store start in Idle instead of Loading. Use it for
// operations that are explicitly triggered, such as creations and login.
func StartIdle() StoreOption {
	return func(c *storeConfig) { c.initial = Idle }
}

type observer[T any] struct {
	id int
	fn func(State[T])
}

// Store holds the current State of one resource. Writes are total
// replacements, serialized so observers see them in write order.
// Observers run synchronously on the writing goroutine; they may call Get
// but must not write the same store.
type Store[T any] struct {
	name    string
	accepts map[Kind]bool

	writeMu sync.Mutex // serializes write+notify

	mu        sync.RWMutex
	value     State[T]
	alive     bool
	issued    uint64
	observers []observer[T]
	nextObs   int
}

// NewStore creates a live store. It starts in Loading unless StartIdle is
// given.
func NewStore[T any](name string, opts ...StoreOption) *Store[T] {
	cfg := storeConfig{initial: Loading, accepts: map[Kind]bool{}}
	for _, o := range opts {
		o(&cfg)
	}
	s := &Store[T]{
		name:    name,
		accepts: cfg.accepts,
		alive:   true,
	}
	s.value = State[T]{kind: cfg.initial}
	return s
}

func (s *Store[T]) Name() string { return s.name }

// Get returns the current state. It never waits on in-flight fetches.
func (s *Store[T]) Get() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Snapshot returns the current state with its payload type erased.
func (s *Store[T]) Snapshot() Snapshot {
	return s.Get().Snapshot(s.name)
}

// Set replaces the current state and notifies observers. It reports false
// when the store has been closed.
func (s *Store[T]) Set(st State[T]) bool {
	return s.write(func(State[T]) (State[T], bool) { return st, true }, nil)
}

// Reset forces the store back to Loading (to == Loading) or Idle (any
// other kind) after a terminal state has been consumed. Resetting to the
// state the store already holds is a no-op.
func (s *Store[T]) Reset(to Kind) {
	target := IdleState[T]()
	if to == Loading {
		target = LoadingState[T]()
	}
	s.write(func(cur State[T]) (State[T], bool) {
		if cur.kind == target.kind && cur.err == nil {
			return cur, false
		}
		return target, true
	}, nil)
}

// Subscribe registers fn for every subsequent state change. The returned
// func removes it.
func (s *Store[T]) Subscribe(fn func(State[T])) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return func() {}
	}
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer[T]{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Close tears the store down. Observers are dropped and later writes,
// including completions of fetches still in flight, are ignored.
func (s *Store[T]) Close() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.observers = nil
}

// Alive reports whether the store still accepts writes.
func (s *Store[T]) Alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alive
}

// AcceptsKind reports whether k is recorded as-is rather than folded into
// Error.
func (s *Store[T]) AcceptsKind(k Kind) bool {
	switch k {
	case NotFound, InvalidCredentials:
		return s.accepts[k]
	default:
		return true
	}
}

// begin publishes Loading and returns the sequence number of the new run.
func (s *Store[T]) begin() (uint64, bool) {
	var ticket uint64
	ok := s.write(func(State[T]) (State[T], bool) {
		s.issued++
		ticket = s.issued
		return LoadingState[T](), true
	}, nil)
	return ticket, ok
}

// finish applies the terminal state of run ticket. With latestOnly set, a
// completion from a superseded run is dropped. then runs with the applied
// state before the next write or Close can start.
func (s *Store[T]) finish(ticket uint64, st State[T], latestOnly bool, then func(State[T])) bool {
	return s.write(func(State[T]) (State[T], bool) {
		if latestOnly && ticket != s.issued {
			return State[T]{}, false
		}
		return st, true
	}, then)
}

func (s *Store[T]) write(next func(cur State[T]) (State[T], bool), then func(State[T])) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return false
	}
	st, apply := next(s.value)
	if !apply {
		s.mu.Unlock()
		return false
	}
	if st.kind.Failure() && !s.AcceptsKind(st.kind) {
		st = State[T]{kind: Error, err: st.err}
	}
	s.value = st
	obs := make([]observer[T], len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()

	for _, o := range obs {
		o.fn(st)
	}
	if then != nil {
		then(st)
	}
	return true
}
