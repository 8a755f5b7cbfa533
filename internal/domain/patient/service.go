package patient

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
	"github.com/ehr/auxcare/pkg/pagination"
)

// Resource names of the stores owned by the patient service.
const (
	ResourcePatient  = "patient"
	ResourcePatients = "patients"
	ResourceCreation = "patient-creation"
	ResourceUpdate   = "patient-update"
)

// maxPages bounds ListAll against a backend that never reports the end.
const maxPages = 50

// Service is the patient view-model. It owns one store per remote
// operation plus the patient detail view-state, and reads the set of
// patients already assigned to a room.
type Service struct {
	repo     Repository
	orch     *resource.Orchestrator
	logger   zerolog.Logger
	assigned *derived.Set[int]

	current  *resource.Store[Patient]
	all      *resource.Store[[]Patient]
	creation *resource.Store[struct{}]
	update   *resource.Store[struct{}]
	detail   *derived.Value[Patient]
}

// NewService wires the service. assigned may be nil when no room feature
// is running, in which case every patient counts as unassigned.
func NewService(repo Repository, orch *resource.Orchestrator, assigned *derived.Set[int], logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		orch:     orch,
		logger:   logger.With().Str("component", "patient").Logger(),
		assigned: assigned,
		current:  resource.NewStore[Patient](ResourcePatient, resource.Accepts(resource.NotFound)),
		all:      resource.NewStore[[]Patient](ResourcePatients),
		creation: resource.NewStore[struct{}](ResourceCreation, resource.StartIdle()),
		update:   resource.NewStore[struct{}](ResourceUpdate, resource.StartIdle()),
		detail:   derived.NewValue[Patient](),
	}
}

func (s *Service) Current() *resource.Store[Patient] { return s.current }
func (s *Service) All() *resource.Store[[]Patient] { return s.all }
func (s *Service) Creation() *resource.Store[struct{}] { return s.creation }
func (s *Service) Update() *resource.Store[struct{}] { return s.update }

// Detail is the patient shown by detail screens. It is filled by a
// successful Get or Save and emptied when the patient does not exist.
func (s *Service) Detail() *derived.Value[Patient] { return s.detail }

// Get fetches one patient and forwards it into Detail.
func (s *Service) Get(ctx context.Context, historial int) resource.State[Patient] {
	return resource.Fetch(ctx, s.orch, s.current,
		func(ctx context.Context) (Patient, error) {
			p, err := s.repo.GetPatient(ctx, historial)
			if err != nil {
				return Patient{}, err
			}
			return *p, nil
		},
		resource.Propagate[Patient](derived.Forward(s.detail, derived.Identity[Patient])),
		resource.ClearOnNotFound[Patient](s.detail),
	)
}

// ListAll fetches every page of the patient list.
func (s *Service) ListAll(ctx context.Context) resource.State[[]Patient] {
	return resource.Fetch(ctx, s.orch, s.all, func(ctx context.Context) ([]Patient, error) {
		params := pagination.Params{Limit: pagination.MaxLimit}
		out := []Patient{}
		for i := 0; i < maxPages; i++ {
			page, err := s.repo.ListPatients(ctx, params)
			if err != nil {
				return nil, err
			}
			out = append(out, page.Data...)
			if !page.HasMore || len(page.Data) == 0 {
				return out, nil
			}
			params = params.Next()
		}
		s.logger.Warn().Int("pages", maxPages).Msg("patient list truncated")
		return out, nil
	})
}

// Create submits a new patient. Invalid input ends in Error without
// reaching the backend.
func (s *Service) Create(ctx context.Context, p Patient) resource.State[struct{}] {
	return resource.Submit(ctx, s.orch, s.creation, func(ctx context.Context) (bool, error) {
		if err := p.Validate(); err != nil {
			return false, err
		}
		return s.repo.CreatePatient(ctx, &p)
	})
}

// Save updates an existing patient and, once acknowledged, shows the new
// values in Detail.
func (s *Service) Save(ctx context.Context, p Patient) resource.State[struct{}] {
	return resource.Submit(ctx, s.orch, s.update,
		func(ctx context.Context) (bool, error) {
			if err := p.Validate(); err != nil {
				return false, err
			}
			return s.repo.UpdatePatient(ctx, &p)
		},
		resource.OnSuccess[struct{}](func() { s.detail.Set(p) }),
	)
}

// Unassigned returns the listed patients that no room currently holds.
// It is empty until ListAll has succeeded.
func (s *Service) Unassigned() []Patient {
	all, ok := s.all.Get().Payload()
	if !ok {
		return nil
	}
	out := make([]Patient, 0, len(all))
	for _, p := range all {
		if s.assigned != nil && s.assigned.Contains(p.HistorialNumber) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Lookup returns the listed patient with the given historial number.
func (s *Service) Lookup(historial int) (Patient, error) {
	all, _ := s.all.Get().Payload()
	for _, p := range all {
		if p.HistorialNumber == historial {
			return p, nil
		}
	}
	return Patient{}, fmt.Errorf("patient %d: %w", historial, resource.ErrNotFound)
}

// Close tears the service down. In-flight completions are ignored.
func (s *Service) Close() {
	s.current.Close()
	s.all.Close()
	s.creation.Close()
	s.update.Close()
	s.detail.Clear()
}
