package room

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/platform/derived"
	"github.com/ehr/auxcare/internal/platform/resource"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	rooms   []Room
	listErr error
	ack     bool
	lists   int
}

func newMockRepo(rooms ...Room) *mockRepo {
	return &mockRepo{rooms: rooms, ack: true}
}

func (m *mockRepo) ListRooms(_ context.Context) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Room, len(m.rooms))
	copy(out, m.rooms)
	return out, nil
}

func (m *mockRepo) AssignPatient(_ context.Context, number, historial int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rooms {
		if m.rooms[i].Number == number {
			m.rooms[i].Patient = &patient.Patient{HistorialNumber: historial}
			return m.ack, nil
		}
	}
	return false, resource.ErrNotFound
}

func (m *mockRepo) ReleaseRoom(_ context.Context, number int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rooms {
		if m.rooms[i].Number == number {
			m.rooms[i].Patient = nil
			return m.ack, nil
		}
	}
	return false, resource.ErrNotFound
}

func newTestService(repo Repository) *Service {
	return NewService(repo, resource.NewOrchestrator(zerolog.Nop()), zerolog.Nop())
}

func TestService_ListEmptyYieldsEmptyAggregate(t *testing.T) {
	svc := newTestService(newMockRepo())
	svc.Assigned().ReplaceAll([]int{99})

	st := svc.List(context.Background())
	rooms, ok := st.Payload()
	if !ok || len(rooms) != 0 {
		t.Fatalf("expected Success([]), got %s", st)
	}
	if svc.Assigned().Len() != 0 {
		t.Errorf("expected empty aggregate, got %v", svc.Assigned().Snapshot())
	}
}

func TestService_ListBuildsAggregate(t *testing.T) {
	svc := newTestService(newMockRepo(
		Room{Number: 1, Patient: &patient.Patient{HistorialNumber: 7}},
		Room{Number: 2},
	))

	svc.List(context.Background())
	if diff := cmp.Diff([]int{7}, derived.Sorted(svc.Assigned())); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ListFailureKeepsAggregate(t *testing.T) {
	repo := newMockRepo(Room{Number: 1, Patient: &patient.Patient{HistorialNumber: 7}})
	svc := newTestService(repo)
	svc.List(context.Background())

	repo.listErr = errors.New("timeout")
	if st := svc.List(context.Background()); st.Kind() != resource.Error {
		t.Fatalf("expected error, got %s", st)
	}
	if !svc.Assigned().Contains(7) {
		t.Error("failed fetch must not touch the aggregate")
	}
}

func TestService_LoadingObservedBeforeTerminal(t *testing.T) {
	svc := newTestService(newMockRepo())
	var kinds []resource.Kind
	unsub := svc.Rooms().Subscribe(func(st resource.State[[]Room]) {
		kinds = append(kinds, st.Kind())
	})
	defer unsub()

	svc.List(context.Background())
	if diff := cmp.Diff([]resource.Kind{resource.Loading, resource.Success}, kinds); diff != "" {
		t.Errorf("transition mismatch (-want +got):\n%s", diff)
	}
}

func TestService_AssignRefreshesRooms(t *testing.T) {
	repo := newMockRepo(Room{Number: 1}, Room{Number: 2})
	svc := newTestService(repo)
	svc.List(context.Background())

	st := svc.Assign(context.Background(), 2, 11)
	if st.Kind() != resource.SuccessCreation {
		t.Fatalf("expected ack, got %s", st)
	}
	if !svc.Assigned().Contains(11) {
		t.Error("expected aggregate to include the new assignment")
	}
	if repo.lists != 2 {
		t.Errorf("expected a refresh after assignment, got %d listings", repo.lists)
	}
}

func TestService_AssignRejectsOccupiedRoom(t *testing.T) {
	repo := newMockRepo(Room{Number: 1, Patient: &patient.Patient{HistorialNumber: 7}})
	svc := newTestService(repo)
	svc.List(context.Background())

	st := svc.Assign(context.Background(), 1, 8)
	if st.Kind() != resource.Error || !errors.Is(st.Err(), ErrRoomOccupied) {
		t.Fatalf("expected occupied error, got %s", st)
	}

	st = svc.Assign(context.Background(), 2, 7)
	if st.Kind() != resource.Error {
		t.Errorf("expected error for an already assigned patient, got %s", st)
	}
}

func TestService_FreeClearsAssignment(t *testing.T) {
	repo := newMockRepo(Room{Number: 1, Patient: &patient.Patient{HistorialNumber: 7}})
	svc := newTestService(repo)
	svc.List(context.Background())

	if st := svc.Free(context.Background(), 1); st.Kind() != resource.SuccessCreation {
		t.Fatalf("expected ack, got %s", st)
	}
	if svc.Assigned().Contains(7) {
		t.Error("expected patient 7 to leave the aggregate")
	}
}

func TestService_CloseClearsAggregate(t *testing.T) {
	svc := newTestService(newMockRepo(Room{Number: 1, Patient: &patient.Patient{HistorialNumber: 7}}))
	svc.List(context.Background())
	svc.Close()

	if svc.Assigned().Len() != 0 {
		t.Error("expected aggregate cleared on close")
	}
	svc.List(context.Background())
	if svc.Assigned().Len() != 0 {
		t.Error("completion after close must not propagate")
	}
}

func TestAssignedPatients(t *testing.T) {
	rooms := []Room{
		{Number: 1, Patient: &patient.Patient{HistorialNumber: 3}},
		{Number: 2},
		{Number: 3, Patient: &patient.Patient{HistorialNumber: 1}},
	}
	if diff := cmp.Diff([]int{3, 1}, AssignedPatients(rooms)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got := AssignedPatients(nil); len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}
