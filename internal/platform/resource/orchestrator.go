package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotAcknowledged is recorded when a creation call answers false.
var ErrNotAcknowledged = errors.New("resource: operation not acknowledged")

// Policy decides what happens when runs on the same store overlap.
type Policy int

const (
	// LastCompletionWins applies every completion in the order it lands, so
	// an older run finishing late overwrites a newer result.
	LastCompletionWins Policy = iota
	// LatestOnly drops completions of runs superseded by a newer one.
	LatestOnly
)

func (p Policy) String() string {
	if p == LatestOnly {
		return "latest-only"
	}
	return "last-completion"
}

// ParsePolicy accepts "last-completion" (or empty) and "latest-only".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "last-completion":
		return LastCompletionWins, nil
	case "latest-only":
		return LatestOnly, nil
	}
	return LastCompletionWins, fmt.Errorf("unknown fetch policy %q", s)
}

// Orchestrator carries the shared settings of every run: how failures are
// classified, the overlap policy, logging and metrics.
type Orchestrator struct {
	logger   zerolog.Logger
	classify Classifier
	policy   Policy
	metrics  *Metrics
}

type Option func(*Orchestrator)

func WithClassifier(c Classifier) Option {
	return func(o *Orchestrator) { o.classify = c }
}

func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func NewOrchestrator(logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		classify: Classify,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Policy() Policy { return o.policy }

// Clearer is a companion view-state emptied when a fetch ends in NotFound.
type Clearer interface {
	Clear()
}

// RunOption configures a single Fetch or Submit.
type RunOption[T any] func(*runConfig[T])

type runConfig[T any] struct {
	propagate  func(T)
	companions []Clearer
	onSuccess  []func()
}

// Propagate runs p with the payload after Success has been published.
func Propagate[T any](p func(T)) RunOption[T] {
	return func(c *runConfig[T]) { c.propagate = p }
}

// ClearOnNotFound empties the given companions when the run ends in
// NotFound.
func ClearOnNotFound[T any](cs ...Clearer) RunOption[T] {
	return func(c *runConfig[T]) { c.companions = append(c.companions, cs...) }
}

// OnSuccess runs fn after a Success or SuccessCreation has been published
// and propagated.
func OnSuccess[T any](fn func()) RunOption[T] {
	return func(c *runConfig[T]) { c.onSuccess = append(c.onSuccess, fn) }
}

// Fetch drives call against s: Loading is published before the call is
// issued, then the payload or the classified failure. Failures never
// escape; the returned State is the outcome of this run, which the store
// may have dropped if the run was superseded or the store was closed.
func Fetch[T any](ctx context.Context, o *Orchestrator, s *Store[T], call func(context.Context) (T, error), opts ...RunOption[T]) State[T] {
	cfg := runConfig[T]{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return run(ctx, o, s, &cfg, func(ctx context.Context) (State[T], *T, error) {
		payload, err := call(ctx)
		if err != nil {
			return State[T]{}, nil, err
		}
		return Succeeded(payload), &payload, nil
	})
}

// Submit drives a creation or update call that answers with an
// acknowledgement. True publishes SuccessCreation, false publishes Error.
func Submit[T any](ctx context.Context, o *Orchestrator, s *Store[T], call func(context.Context) (bool, error), opts ...RunOption[T]) State[T] {
	cfg := runConfig[T]{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return run(ctx, o, s, &cfg, func(ctx context.Context) (State[T], *T, error) {
		ok, err := call(ctx)
		if err != nil {
			return State[T]{}, nil, err
		}
		if !ok {
			return State[T]{}, nil, ErrNotAcknowledged
		}
		return Created[T](), nil, nil
	})
}

type startHookKey struct{}

// WithStartHook returns a context whose runs call fn once their Loading has
// been published, or once they were skipped because the store is closed.
// Runs started with other contexts never call it.
func WithStartHook(ctx context.Context, fn func()) context.Context {
	return context.WithValue(ctx, startHookKey{}, fn)
}

func started(ctx context.Context) {
	if fn, ok := ctx.Value(startHookKey{}).(func()); ok {
		fn()
	}
}

func run[T any](ctx context.Context, o *Orchestrator, s *Store[T], cfg *runConfig[T], call func(context.Context) (State[T], *T, error)) State[T] {
	log := o.logger.With().Str("resource", s.Name()).Logger()

	ticket, ok := s.begin()
	started(ctx)
	if !ok {
		log.Debug().Msg("store closed, run skipped")
		return s.Get()
	}

	start := time.Now()
	o.metrics.started(s.Name())
	st, payload, err := call(ctx)
	elapsed := time.Since(start)

	if err != nil {
		kind := o.classify(err)
		if !s.AcceptsKind(kind) {
			kind = Error
		}
		st = Failed[T](kind, err)
	}

	// Propagation runs inside the store's write so that it is ordered with
	// later runs and with Close.
	applied := func(published State[T]) {
		switch {
		case published.Kind() == NotFound:
			for _, c := range cfg.companions {
				c.Clear()
			}
		case err == nil && payload != nil && cfg.propagate != nil:
			cfg.propagate(*payload)
		}
	}
	if !s.finish(ticket, st, o.policy == LatestOnly, applied) {
		o.metrics.finished(s.Name(), "dropped", elapsed)
		log.Debug().Uint64("run", ticket).Str("outcome", st.Kind().String()).Msg("completion dropped")
		return st
	}
	o.metrics.finished(s.Name(), st.Kind().String(), elapsed)

	if err != nil {
		evt := log.Warn()
		if st.Kind() == Error {
			evt = log.Error()
		}
		evt.Err(err).Str("outcome", st.Kind().String()).Dur("latency", elapsed).Msg("remote operation failed")
		return st
	}
	log.Debug().Str("outcome", st.Kind().String()).Dur("latency", elapsed).Msg("remote operation completed")
	if s.Alive() {
		for _, fn := range cfg.onSuccess {
			fn()
		}
	}
	return st
}
