package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
)

func newPatient(historial int) *patient.Patient {
	return &patient.Patient{HistorialNumber: historial, DNI: "00000000T", Name: "Ana", Surname: "García"}
}

func TestMemoryStore_RoomAssignment(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, h := range []int{7, 8} {
		if err := s.CreatePatient(ctx, newPatient(h)); err != nil {
			t.Fatalf("create patient %d: %v", h, err)
		}
	}
	_ = s.PutRoom(ctx, room.Room{Number: 101, Floor: 1})
	_ = s.PutRoom(ctx, room.Room{Number: 102, Floor: 1})

	if err := s.AssignRoom(ctx, 101, 7); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := s.AssignRoom(ctx, 101, 8); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict for occupied room, got %v", err)
	}
	if err := s.AssignRoom(ctx, 102, 7); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict for patient already placed, got %v", err)
	}
	if err := s.AssignRoom(ctx, 999, 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found for unknown room, got %v", err)
	}
	if err := s.AssignRoom(ctx, 102, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found for unknown patient, got %v", err)
	}

	rooms, _ := s.ListRooms(ctx)
	if got := room.AssignedPatients(rooms); !cmp.Equal(got, []int{7}) {
		t.Errorf("expected [7] assigned, got %v", got)
	}

	if err := s.ReleaseRoom(ctx, 101); err != nil {
		t.Fatalf("release: %v", err)
	}
	rooms, _ = s.ListRooms(ctx)
	if got := room.AssignedPatients(rooms); len(got) != 0 {
		t.Errorf("expected no assigned patients, got %v", got)
	}
}

func TestMemoryStore_PutRoomIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := newPatient(7)
	_ = s.CreatePatient(ctx, p)
	r := room.Room{Number: 101, Floor: 1, Patient: p}
	if err := s.PutRoom(ctx, r); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutRoom(ctx, r); err != nil {
		t.Errorf("re-putting the same room should succeed: %v", err)
	}
}

func TestMemoryStore_ListPatientsPages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for h := 5; h >= 1; h-- {
		_ = s.CreatePatient(ctx, newPatient(h))
	}

	page, total, err := s.ListPatients(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(page) != 2 || page[0].HistorialNumber != 3 || page[1].HistorialNumber != 4 {
		t.Errorf("unexpected page %+v", page)
	}

	page, _, _ = s.ListPatients(ctx, 2, 10)
	if len(page) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(page))
	}
}

func TestMemoryStore_DuplicatePatient(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreatePatient(ctx, newPatient(1))
	if err := s.CreatePatient(ctx, newPatient(1)); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := s.UpdatePatient(ctx, newPatient(2)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found on update, got %v", err)
	}
}

func TestMemoryStore_Prescriptions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreatePatient(ctx, newPatient(1))
	_ = s.PutMedication(ctx, medication.Medication{ID: 3, Name: "Omeprazol"})

	p := &medication.Prescription{HistorialNumber: 1, MedicationID: 3, Frequency: "cada 24 h"}
	if err := s.AddPrescription(ctx, p); err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	if err := s.AddPrescription(ctx, p); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict on repeated prescription, got %v", err)
	}
	bad := &medication.Prescription{HistorialNumber: 1, MedicationID: 9, Frequency: "cada 8 h"}
	if err := s.AddPrescription(ctx, bad); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found for unknown medication, got %v", err)
	}
	if _, err := s.ListPrescriptions(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found for unknown patient, got %v", err)
	}
}

func TestMemoryStore_CareRecordsSortedAndNumbered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.CreatePatient(ctx, newPatient(1))
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	late := &care.Record{HistorialNumber: 1, RecordedAt: base.Add(time.Hour)}
	early := &care.Record{HistorialNumber: 1, RecordedAt: base}
	_ = s.AddCareRecord(ctx, late)
	_ = s.AddCareRecord(ctx, early)

	if late.ID == 0 || early.ID == 0 || late.ID == early.ID {
		t.Errorf("expected distinct ids, got %d and %d", late.ID, early.ID)
	}
	rs, err := s.ListCareRecords(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rs) != 2 || !rs[0].RecordedAt.Equal(base) {
		t.Errorf("expected records in time order, got %+v", rs)
	}
}
