// Package sandbox is a self-contained implementation of the hospital
// backend the client talks to. It serves the same JSON API over echo from
// an in-memory or Postgres store seeded with reproducible synthetic data,
// for integration tests, demos and local development.
package sandbox

import (
	"context"
	"errors"

	"github.com/ehr/auxcare/internal/domain/auxiliary"
	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
)

var (
	ErrNotFound = errors.New("sandbox: not found")
	ErrConflict = errors.New("sandbox: conflict")
)

// Account is an auxiliary able to log in.
type Account struct {
	Auxiliary    auxiliary.Auxiliary
	PasswordHash string
}

// Store is the sandbox persistence. Lookups of missing entities return
// ErrNotFound; writes that break a uniqueness rule (a second patient with
// the same historial number, a patient in two rooms, an occupied room)
// return ErrConflict.
type Store interface {
	PutAccount(ctx context.Context, a Account) error
	Account(ctx context.Context, id int) (Account, error)

	PutRoom(ctx context.Context, r room.Room) error
	ListRooms(ctx context.Context) ([]room.Room, error)
	AssignRoom(ctx context.Context, number, historial int) error
	ReleaseRoom(ctx context.Context, number int) error

	GetPatient(ctx context.Context, historial int) (*patient.Patient, error)
	ListPatients(ctx context.Context, limit, offset int) ([]patient.Patient, int, error)
	CreatePatient(ctx context.Context, p *patient.Patient) error
	UpdatePatient(ctx context.Context, p *patient.Patient) error

	GetDiagnosis(ctx context.Context, historial int) (*diagnosis.Diagnosis, error)
	SaveDiagnosis(ctx context.Context, d *diagnosis.Diagnosis) error

	PutMedication(ctx context.Context, m medication.Medication) error
	ListMedications(ctx context.Context) ([]medication.Medication, error)
	ListPrescriptions(ctx context.Context, historial int) ([]medication.Prescription, error)
	AddPrescription(ctx context.Context, p *medication.Prescription) error

	ListCareRecords(ctx context.Context, historial int) ([]care.Record, error)
	AddCareRecord(ctx context.Context, r *care.Record) error
}
