package diagnosis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/resource"
)

// -- Mock Repository --

type mockRepo struct {
	records map[int]*Diagnosis
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[int]*Diagnosis)}
}

func (m *mockRepo) GetDiagnosis(_ context.Context, historial int) (*Diagnosis, error) {
	d, ok := m.records[historial]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return d, nil
}

func (m *mockRepo) SaveDiagnosis(_ context.Context, d *Diagnosis) (bool, error) {
	m.records[d.HistorialNumber] = d
	return true, nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, resource.NewOrchestrator(zerolog.Nop()), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_GetPrefillsForm(t *testing.T) {
	repo := newMockRepo()
	repo.records[7] = &Diagnosis{HistorialNumber: 7, Description: "Neumonía"}
	svc := newTestService(repo)

	if st := svc.Get(context.Background(), 7); st.Kind() != resource.Success {
		t.Fatalf("expected success, got %s", st)
	}
	if d, ok := svc.Form().Get(); !ok || d.Description != "Neumonía" {
		t.Errorf("form not prefilled: %+v", d)
	}
}

func TestService_GetNotFoundClearsForm(t *testing.T) {
	repo := newMockRepo()
	repo.records[7] = &Diagnosis{HistorialNumber: 7, Description: "Neumonía"}
	svc := newTestService(repo)
	svc.Get(context.Background(), 7)

	if st := svc.Get(context.Background(), 8); st.Kind() != resource.NotFound {
		t.Fatalf("expected not found, got %s", st)
	}
	if _, ok := svc.Form().Get(); ok {
		t.Error("expected form to be cleared")
	}
}

func TestService_SaveStampsDateAndFillsForm(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	st := svc.Save(context.Background(), Diagnosis{HistorialNumber: 3, Description: "Fractura de cadera"})
	if st.Kind() != resource.SuccessCreation {
		t.Fatalf("expected ack, got %s", st)
	}
	if repo.records[3].DiagnosedAt.IsZero() {
		t.Error("expected diagnosis date to be stamped")
	}
	if d, _ := svc.Form().Get(); d.Description != "Fractura de cadera" {
		t.Errorf("form not updated: %+v", d)
	}
}

func TestService_SaveRejectsEmpty(t *testing.T) {
	svc := newTestService(newMockRepo())
	st := svc.Save(context.Background(), Diagnosis{HistorialNumber: 3})
	if !errors.Is(st.Err(), ErrEmptyDiagnosis) {
		t.Fatalf("expected empty diagnosis error, got %s", st)
	}
}
