package diagnosis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

const (
	ResourceDiagnosis = "diagnosis"
	ResourceSave      = "diagnosis-save"
)

type Service struct {
	repo   Repository
	orch   *resource.Orchestrator
	logger zerolog.Logger
	now    func() time.Time

	current *resource.Store[Diagnosis]
	save    *resource.Store[struct{}]
	form    *derived.Value[Diagnosis]
}

func NewService(repo Repository, orch *resource.Orchestrator, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		orch:    orch,
		logger:  logger.With().Str("component", "diagnosis").Logger(),
		now:     time.Now,
		current: resource.NewStore[Diagnosis](ResourceDiagnosis, resource.Accepts(resource.NotFound)),
		save:    resource.NewStore[struct{}](ResourceSave, resource.StartIdle()),
		form:    derived.NewValue[Diagnosis](),
	}
}

func (s *Service) Current() *resource.Store[Diagnosis] { return s.current }
func (s *Service) Saving() *resource.Store[struct{}] { return s.save }

// Form holds the diagnosis being edited. It is prefilled from a successful
// Get and emptied when the patient has no diagnosis yet.
func (s *Service) Form() *derived.Value[Diagnosis] { return s.form }

func (s *Service) Get(ctx context.Context, historial int) resource.State[Diagnosis] {
	return resource.Fetch(ctx, s.orch, s.current,
		func(ctx context.Context) (Diagnosis, error) {
			d, err := s.repo.GetDiagnosis(ctx, historial)
			if err != nil {
				return Diagnosis{}, err
			}
			return *d, nil
		},
		resource.Propagate[Diagnosis](derived.Forward(s.form, derived.Identity[Diagnosis])),
		resource.ClearOnNotFound[Diagnosis](s.form),
	)
}

// Save stores d as the patient's diagnosis. A zero DiagnosedAt is stamped
// with the current time.
func (s *Service) Save(ctx context.Context, d Diagnosis) resource.State[struct{}] {
	if d.DiagnosedAt.IsZero() {
		d.DiagnosedAt = s.now().UTC()
	}
	return resource.Submit(ctx, s.orch, s.save,
		func(ctx context.Context) (bool, error) {
			if err := d.Validate(); err != nil {
				return false, err
			}
			return s.repo.SaveDiagnosis(ctx, &d)
		},
		resource.OnSuccess[struct{}](func() { s.form.Set(d) }),
	)
}

func (s *Service) Close() {
	s.current.Close()
	s.save.Close()
	s.form.Clear()
}
