// Package app is the consumer surface of the client: it wires the API
// client, the orchestrator and every feature service, and exposes their
// resources by name to UIs, the CLI and the state bridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ehr/auxcare/internal/config"
	"github.com/ehr/auxcare/internal/domain/auxiliary"
	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/apiclient"
	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

var (
	ErrUnknownOperation = errors.New("app: unknown operation")
	ErrUnknownResource  = errors.New("app: unknown resource")
	ErrBadParams        = errors.New("app: bad params")
	ErrClosed           = errors.New("app: closed")
)

// Aggregate names.
const (
	AggregateAssignedPatients      = "assigned-patients"
	AggregatePrescribedMedications = "prescribed-medications"
)

type entry struct {
	snapshot  func() resource.Snapshot
	subscribe func(fn func(resource.Snapshot)) func()
	reset     func(resource.Kind)
	close     func()
}

func register[T any](a *App, s *resource.Store[T]) {
	name := s.Name()
	a.resources[name] = entry{
		snapshot: s.Snapshot,
		subscribe: func(fn func(resource.Snapshot)) func() {
			return s.Subscribe(func(st resource.State[T]) { fn(st.Snapshot(name)) })
		},
		reset: s.Reset,
		close: s.Close,
	}
}

// App owns every store of the client. It is safe for concurrent use.
type App struct {
	Client     *apiclient.Client
	Auxiliary  *auxiliary.Service
	Rooms      *room.Service
	Patients   *patient.Service
	Diagnoses  *diagnosis.Service
	Medication *medication.Service
	Care       *care.Service

	logger     zerolog.Logger
	resources  map[string]entry
	aggregates map[string]*derived.Set[int]
	ops        map[string]operation

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New wires the feature services on top of client and orch.
func New(client *apiclient.Client, orch *resource.Orchestrator, logger zerolog.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	a := &App{
		Client:     client,
		logger:     logger.With().Str("component", "app").Logger(),
		resources:  make(map[string]entry),
		aggregates: make(map[string]*derived.Set[int]),
		ctx:        gctx,
		cancel:     cancel,
		group:      group,
	}

	a.Auxiliary = auxiliary.NewService(auxiliary.NewHTTPRepo(client), orch, client, logger)
	a.Rooms = room.NewService(room.NewHTTPRepo(client), orch, logger)
	a.Patients = patient.NewService(patient.NewHTTPRepo(client), orch, a.Rooms.Assigned(), logger)
	a.Diagnoses = diagnosis.NewService(diagnosis.NewHTTPRepo(client), orch, logger)
	a.Medication = medication.NewService(medication.NewHTTPRepo(client), orch, logger)
	a.Care = care.NewService(care.NewHTTPRepo(client), orch, logger)
	a.Care.SetAuthor(func() (int, bool) {
		sess, ok := a.Auxiliary.Session().Get()
		return sess.Auxiliary.ID, ok
	})

	register(a, a.Auxiliary.Login())
	register(a, a.Rooms.Rooms())
	register(a, a.Rooms.Assignment())
	register(a, a.Rooms.Release())
	register(a, a.Patients.Current())
	register(a, a.Patients.All())
	register(a, a.Patients.Creation())
	register(a, a.Patients.Update())
	register(a, a.Diagnoses.Current())
	register(a, a.Diagnoses.Saving())
	register(a, a.Medication.Catalog())
	register(a, a.Medication.Prescriptions())
	register(a, a.Medication.Prescribing())
	register(a, a.Care.Records())
	register(a, a.Care.Creation())

	a.aggregates[AggregateAssignedPatients] = a.Rooms.Assigned()
	a.aggregates[AggregatePrescribedMedications] = a.Medication.Prescribed()

	a.ops = a.operations()
	return a
}

// NewFromConfig builds the API client and orchestrator from cfg. Metrics
// are registered on reg when it is non-nil.
func NewFromConfig(cfg *config.Config, reg prometheus.Registerer, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client := apiclient.New(cfg.APIBaseURL, logger, apiclient.Options{
		Timeout:        cfg.APITimeout,
		RateLimit:      rate.Limit(cfg.APIRateLimit),
		RateLimitBurst: cfg.APIRateBurst,
	})
	opts := []resource.Option{resource.WithPolicy(cfg.Policy())}
	if reg != nil {
		opts = append(opts, resource.WithMetrics(resource.NewMetrics(reg)))
	}
	return New(client, resource.NewOrchestrator(logger, opts...), logger), nil
}

// Resources lists the resource names in lexical order.
func (a *App) Resources() []string {
	out := make([]string, 0, len(a.resources))
	for name := range a.resources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Aggregates lists the aggregate names in lexical order.
func (a *App) Aggregates() []string {
	out := make([]string, 0, len(a.aggregates))
	for name := range a.aggregates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (a *App) lookup(name string) (entry, error) {
	e, ok := a.resources[name]
	if !ok {
		return entry{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return e, nil
}

// Observe calls fn with every state change of the named resource, in the
// order the store applies them.
func (a *App) Observe(name string, fn func(resource.Snapshot)) (func(), error) {
	e, err := a.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.subscribe(fn), nil
}

// Snapshot returns the current state of the named resource.
func (a *App) Snapshot(name string) (resource.Snapshot, error) {
	e, err := a.lookup(name)
	if err != nil {
		return resource.Snapshot{}, err
	}
	return e.snapshot(), nil
}

// ResetResource forces the named resource back to Loading (to ==
// Loading) or Idle. Calling it twice has the effect of calling it once.
func (a *App) ResetResource(name string, to resource.Kind) error {
	e, err := a.lookup(name)
	if err != nil {
		return err
	}
	e.reset(to)
	return nil
}

// ReadAggregate returns the members of the named aggregate in ascending
// order.
func (a *App) ReadAggregate(name string) ([]int, error) {
	s, ok := a.aggregates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return derived.Sorted(s), nil
}

// ObserveAggregate calls fn with the members of the named aggregate after
// every replacement.
func (a *App) ObserveAggregate(name string, fn func([]int)) (func(), error) {
	s, ok := a.aggregates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return s.Subscribe(func(members []int) {
		sort.Ints(members)
		fn(members)
	}), nil
}

// Current resolves a bridge topic: a resource name or an aggregate name.
func (a *App) Current(topic string) (resource.Snapshot, bool) {
	if e, ok := a.resources[topic]; ok {
		return e.snapshot(), true
	}
	if s, ok := a.aggregates[topic]; ok {
		return aggregateSnapshot(topic, derived.Sorted(s)), true
	}
	return resource.Snapshot{}, false
}

func aggregateSnapshot(name string, members []int) resource.Snapshot {
	return resource.Snapshot{
		Resource: name,
		Kind:     resource.Success,
		KindName: resource.Success.String(),
		Payload:  members,
	}
}

// Publisher receives every state change once attached.
type Publisher interface {
	PublishSnapshot(snap resource.Snapshot)
	PublishAggregate(name string, members []int)
}

// Attach forwards every resource and aggregate change to p until the
// returned func is called.
func (a *App) Attach(p Publisher) func() {
	var cancels []func()
	for _, e := range a.resources {
		cancels = append(cancels, e.subscribe(p.PublishSnapshot))
	}
	for name, s := range a.aggregates {
		name := name
		cancels = append(cancels, s.Subscribe(func(members []int) {
			sort.Ints(members)
			p.PublishAggregate(name, members)
		}))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Close tears every feature down, then cancels background runs and waits
// for them. Stores are closed first so that the completions of cancelled
// runs are dropped rather than published. Close is idempotent.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.Auxiliary.Close()
	a.Rooms.Close()
	a.Patients.Close()
	a.Diagnoses.Close()
	a.Medication.Close()
	a.Care.Close()

	a.cancel()
	err := a.group.Wait()
	a.Client.CloseIdleConnections()
	a.logger.Debug().Msg("closed")
	return err
}
