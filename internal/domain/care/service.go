package care

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

const (
	ResourceRecords  = "care-records"
	ResourceCreation = "care-record-creation"
)

type Service struct {
	repo   Repository
	orch   *resource.Orchestrator
	logger zerolog.Logger
	now    func() time.Time
	author func() (int, bool)

	records  *resource.Store[[]Record]
	creation *resource.Store[struct{}]
	latest   *derived.Value[Record]
}

func NewService(repo Repository, orch *resource.Orchestrator, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		orch:     orch,
		logger:   logger.With().Str("component", "care").Logger(),
		now:      time.Now,
		records:  resource.NewStore[[]Record](ResourceRecords, resource.Accepts(resource.NotFound)),
		creation: resource.NewStore[struct{}](ResourceCreation, resource.StartIdle()),
		latest:   derived.NewValue[Record](),
	}
}

// SetAuthor attaches the source of the signed-in auxiliary, used to sign
// records created without an author.
func (s *Service) SetAuthor(fn func() (int, bool)) {
	s.author = fn
}

func (s *Service) Records() *resource.Store[[]Record] { return s.records }
func (s *Service) Creation() *resource.Store[struct{}] { return s.creation }

// Latest is the most recent record of the patient fetched last.
func (s *Service) Latest() *derived.Value[Record] { return s.latest }

func (s *Service) List(ctx context.Context, historial int) resource.State[[]Record] {
	return resource.Fetch(ctx, s.orch, s.records,
		func(ctx context.Context) ([]Record, error) {
			return s.repo.ListRecords(ctx, historial)
		},
		resource.Propagate[[]Record](s.forwardLatest),
		resource.ClearOnNotFound[[]Record](s.latest),
	)
}

func (s *Service) forwardLatest(rs []Record) {
	if r, ok := Latest(rs); ok {
		s.latest.Set(r)
		return
	}
	s.latest.Clear()
}

// Create records a round of care and refreshes the patient's records.
func (s *Service) Create(ctx context.Context, r Record) resource.State[struct{}] {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = s.now().UTC()
	}
	if r.AuxiliaryID == 0 && s.author != nil {
		if id, ok := s.author(); ok {
			r.AuxiliaryID = id
		}
	}
	return resource.Submit(ctx, s.orch, s.creation,
		func(ctx context.Context) (bool, error) {
			if err := r.Validate(); err != nil {
				return false, err
			}
			return s.repo.CreateRecord(ctx, &r)
		},
		resource.OnSuccess[struct{}](func() { s.List(ctx, r.HistorialNumber) }),
	)
}

func (s *Service) Close() {
	s.records.Close()
	s.creation.Close()
	s.latest.Clear()
}
