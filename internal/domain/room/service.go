package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

const (
	ResourceRooms      = "rooms"
	ResourceAssignment = "room-assignment"
	ResourceRelease    = "room-release"
)

// ErrRoomOccupied is returned when assigning a patient to a room the last
// successful listing shows as taken.
var ErrRoomOccupied = errors.New("room: occupied")

// Service coordinates room assignment. It owns the assigned-patients
// aggregate: the set of historial numbers currently held by a room, rebuilt
// from every successful room listing and read by the patient feature.
type Service struct {
	repo   Repository
	orch   *resource.Orchestrator
	logger zerolog.Logger

	rooms      *resource.Store[[]Room]
	assignment *resource.Store[struct{}]
	release    *resource.Store[struct{}]
	assigned   *derived.Set[int]
}

func NewService(repo Repository, orch *resource.Orchestrator, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		orch:       orch,
		logger:     logger.With().Str("component", "room").Logger(),
		rooms:      resource.NewStore[[]Room](ResourceRooms),
		assignment: resource.NewStore[struct{}](ResourceAssignment, resource.StartIdle()),
		release:    resource.NewStore[struct{}](ResourceRelease, resource.StartIdle()),
		assigned:   derived.NewSet[int](),
	}
}

func (s *Service) Rooms() *resource.Store[[]Room] { return s.rooms }
func (s *Service) Assignment() *resource.Store[struct{}] { return s.assignment }
func (s *Service) Release() *resource.Store[struct{}] { return s.release }

// Assigned is the assigned-patients aggregate. Only this service writes it.
func (s *Service) Assigned() *derived.Set[int] { return s.assigned }

// List fetches all rooms and rebuilds the assigned-patients aggregate from
// the payload.
func (s *Service) List(ctx context.Context) resource.State[[]Room] {
	return resource.Fetch(ctx, s.orch, s.rooms, s.repo.ListRooms,
		resource.Propagate[[]Room](derived.Aggregate(s.assigned, AssignedPatients)),
	)
}

// Assign puts a patient in a room and refreshes the room listing once the
// backend acknowledges it.
func (s *Service) Assign(ctx context.Context, number, historial int) resource.State[struct{}] {
	return resource.Submit(ctx, s.orch, s.assignment,
		func(ctx context.Context) (bool, error) {
			if err := s.checkFree(number, historial); err != nil {
				return false, err
			}
			return s.repo.AssignPatient(ctx, number, historial)
		},
		resource.OnSuccess[struct{}](func() { s.List(ctx) }),
	)
}

// Free releases whatever patient a room holds.
func (s *Service) Free(ctx context.Context, number int) resource.State[struct{}] {
	return resource.Submit(ctx, s.orch, s.release,
		func(ctx context.Context) (bool, error) {
			return s.repo.ReleaseRoom(ctx, number)
		},
		resource.OnSuccess[struct{}](func() { s.List(ctx) }),
	)
}

// checkFree rejects assignments that the current listing already shows as
// conflicting. Without a listing the backend decides.
func (s *Service) checkFree(number, historial int) error {
	if s.assigned.Contains(historial) {
		return fmt.Errorf("patient %d already has a room", historial)
	}
	rooms, ok := s.rooms.Get().Payload()
	if !ok {
		return nil
	}
	for _, r := range rooms {
		if r.Number == number && r.Occupied() {
			return fmt.Errorf("room %d: %w", number, ErrRoomOccupied)
		}
	}
	return nil
}

// Close tears the feature down: stores stop accepting completions and the
// aggregate is cleared.
func (s *Service) Close() {
	s.rooms.Close()
	s.assignment.Close()
	s.release.Close()
	s.assigned.Clear()
}
