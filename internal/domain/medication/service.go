package medication

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

const (
	ResourceCatalog       = "medications"
	ResourcePrescriptions = "prescriptions"
	ResourcePrescribe     = "prescription-creation"
)

// Service drives the medication catalog and a patient's prescriptions. The
// prescribed set mirrors the medication IDs of the last successful
// prescriptions fetch, so the catalog can be filtered to what is still
// available.
type Service struct {
	repo   Repository
	orch   *resource.Orchestrator
	logger zerolog.Logger

	catalog       *resource.Store[[]Medication]
	prescriptions *resource.Store[[]Prescription]
	prescribe     *resource.Store[struct{}]
	prescribed    *derived.Set[int]
}

func NewService(repo Repository, orch *resource.Orchestrator, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		orch:          orch,
		logger:        logger.With().Str("component", "medication").Logger(),
		catalog:       resource.NewStore[[]Medication](ResourceCatalog),
		prescriptions: resource.NewStore[[]Prescription](ResourcePrescriptions, resource.Accepts(resource.NotFound)),
		prescribe:     resource.NewStore[struct{}](ResourcePrescribe, resource.StartIdle()),
		prescribed:    derived.NewSet[int](),
	}
}

func (s *Service) Catalog() *resource.Store[[]Medication] { return s.catalog }
func (s *Service) Prescriptions() *resource.Store[[]Prescription] { return s.prescriptions }
func (s *Service) Prescribing() *resource.Store[struct{}] { return s.prescribe }
func (s *Service) Prescribed() *derived.Set[int] { return s.prescribed }

func (s *Service) ListCatalog(ctx context.Context) resource.State[[]Medication] {
	return resource.Fetch(ctx, s.orch, s.catalog, s.repo.ListMedications)
}

// ListPrescriptions fetches the prescriptions of one patient. A patient the
// backend does not know ends in NotFound and empties the prescribed set.
func (s *Service) ListPrescriptions(ctx context.Context, historial int) resource.State[[]Prescription] {
	return resource.Fetch(ctx, s.orch, s.prescriptions,
		func(ctx context.Context) ([]Prescription, error) {
			return s.repo.ListPrescriptions(ctx, historial)
		},
		resource.Propagate[[]Prescription](derived.Aggregate(s.prescribed, MedicationIDs)),
		resource.ClearOnNotFound[[]Prescription](s.prescribed),
	)
}

// Prescribe adds a prescription and refreshes the patient's list.
func (s *Service) Prescribe(ctx context.Context, p Prescription) resource.State[struct{}] {
	return resource.Submit(ctx, s.orch, s.prescribe,
		func(ctx context.Context) (bool, error) {
			if err := p.Validate(); err != nil {
				return false, err
			}
			return s.repo.Prescribe(ctx, &p)
		},
		resource.OnSuccess[struct{}](func() { s.ListPrescriptions(ctx, p.HistorialNumber) }),
	)
}

// Available returns the catalog entries not yet prescribed to the patient
// whose prescriptions were fetched last.
func (s *Service) Available() []Medication {
	all, ok := s.catalog.Get().Payload()
	if !ok {
		return nil
	}
	out := make([]Medication, 0, len(all))
	for _, m := range all {
		if !s.prescribed.Contains(m.ID) {
			out = append(out, m)
		}
	}
	return out
}

func (s *Service) Close() {
	s.catalog.Close()
	s.prescriptions.Close()
	s.prescribe.Close()
	s.prescribed.Clear()
}
