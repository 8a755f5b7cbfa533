package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ehr/auxcare/internal/domain/auxiliary"
	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/resource"
)

// Operation names accepted by Trigger and Do.
const (
	OpLogin             = "login"
	OpGetAllRooms       = "getAllRooms"
	OpAssignRoom        = "assignRoom"
	OpReleaseRoom       = "releaseRoom"
	OpGetPatient        = "getPatient"
	OpGetAllPatients    = "getAllPatients"
	OpCreatePatient     = "createPatient"
	OpUpdatePatient     = "updatePatient"
	OpGetDiagnosis      = "getDiagnosis"
	OpSaveDiagnosis     = "saveDiagnosis"
	OpGetAllMedications = "getAllMedications"
	OpGetPrescriptions  = "getPrescriptions"
	OpPrescribe         = "prescribe"
	OpGetCareRecords    = "getCareRecords"
	OpCreateCareRecord  = "createCareRecord"
)

// Params carries the arguments of an operation. Each operation reads only
// the fields it needs.
type Params struct {
	AuxiliaryID     int    `json:"auxiliaryId,omitempty"`
	Password        string `json:"password,omitempty"`
	RoomNumber      int    `json:"roomNumber,omitempty"`
	HistorialNumber int    `json:"historialNumber,omitempty"`

	Patient      *patient.Patient         `json:"patient,omitempty"`
	Diagnosis    *diagnosis.Diagnosis     `json:"diagnosis,omitempty"`
	Prescription *medication.Prescription `json:"prescription,omitempty"`
	Record       *care.Record             `json:"record,omitempty"`
}

type operation struct {
	// resource is the store the operation writes.
	resource string
	validate func(Params) error
	run      func(ctx context.Context, p Params) resource.Snapshot
}

func need(ok bool, op, field string) error {
	if !ok {
		return fmt.Errorf("%w: %s requires %s", ErrBadParams, op, field)
	}
	return nil
}

func noParams(Params) error { return nil }

func (a *App) operations() map[string]operation {
	return map[string]operation{
		OpLogin: {
			resource: auxiliary.ResourceLogin,
			validate: func(p Params) error { return need(p.AuxiliaryID != 0, OpLogin, "auxiliaryId") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Auxiliary.SignIn(ctx, p.AuxiliaryID, p.Password).Snapshot(auxiliary.ResourceLogin)
			},
		},
		OpGetAllRooms: {
			resource: room.ResourceRooms,
			validate: noParams,
			run: func(ctx context.Context, _ Params) resource.Snapshot {
				return a.Rooms.List(ctx).Snapshot(room.ResourceRooms)
			},
		},
		OpAssignRoom: {
			resource: room.ResourceAssignment,
			validate: func(p Params) error {
				if err := need(p.RoomNumber != 0, OpAssignRoom, "roomNumber"); err != nil {
					return err
				}
				return need(p.HistorialNumber != 0, OpAssignRoom, "historialNumber")
			},
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Rooms.Assign(ctx, p.RoomNumber, p.HistorialNumber).Snapshot(room.ResourceAssignment)
			},
		},
		OpReleaseRoom: {
			resource: room.ResourceRelease,
			validate: func(p Params) error { return need(p.RoomNumber != 0, OpReleaseRoom, "roomNumber") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Rooms.Free(ctx, p.RoomNumber).Snapshot(room.ResourceRelease)
			},
		},
		OpGetPatient: {
			resource: patient.ResourcePatient,
			validate: func(p Params) error { return need(p.HistorialNumber != 0, OpGetPatient, "historialNumber") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Patients.Get(ctx, p.HistorialNumber).Snapshot(patient.ResourcePatient)
			},
		},
		OpGetAllPatients: {
			resource: patient.ResourcePatients,
			validate: noParams,
			run: func(ctx context.Context, _ Params) resource.Snapshot {
				return a.Patients.ListAll(ctx).Snapshot(patient.ResourcePatients)
			},
		},
		OpCreatePatient: {
			resource: patient.ResourceCreation,
			validate: func(p Params) error { return need(p.Patient != nil, OpCreatePatient, "patient") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Patients.Create(ctx, *p.Patient).Snapshot(patient.ResourceCreation)
			},
		},
		OpUpdatePatient: {
			resource: patient.ResourceUpdate,
			validate: func(p Params) error { return need(p.Patient != nil, OpUpdatePatient, "patient") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Patients.Save(ctx, *p.Patient).Snapshot(patient.ResourceUpdate)
			},
		},
		OpGetDiagnosis: {
			resource: diagnosis.ResourceDiagnosis,
			validate: func(p Params) error { return need(p.HistorialNumber != 0, OpGetDiagnosis, "historialNumber") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Diagnoses.Get(ctx, p.HistorialNumber).Snapshot(diagnosis.ResourceDiagnosis)
			},
		},
		OpSaveDiagnosis: {
			resource: diagnosis.ResourceSave,
			validate: func(p Params) error { return need(p.Diagnosis != nil, OpSaveDiagnosis, "diagnosis") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Diagnoses.Save(ctx, *p.Diagnosis).Snapshot(diagnosis.ResourceSave)
			},
		},
		OpGetAllMedications: {
			resource: medication.ResourceCatalog,
			validate: noParams,
			run: func(ctx context.Context, _ Params) resource.Snapshot {
				return a.Medication.ListCatalog(ctx).Snapshot(medication.ResourceCatalog)
			},
		},
		OpGetPrescriptions: {
			resource: medication.ResourcePrescriptions,
			validate: func(p Params) error {
				return need(p.HistorialNumber != 0, OpGetPrescriptions, "historialNumber")
			},
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Medication.ListPrescriptions(ctx, p.HistorialNumber).Snapshot(medication.ResourcePrescriptions)
			},
		},
		OpPrescribe: {
			resource: medication.ResourcePrescribe,
			validate: func(p Params) error { return need(p.Prescription != nil, OpPrescribe, "prescription") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Medication.Prescribe(ctx, *p.Prescription).Snapshot(medication.ResourcePrescribe)
			},
		},
		OpGetCareRecords: {
			resource: care.ResourceRecords,
			validate: func(p Params) error { return need(p.HistorialNumber != 0, OpGetCareRecords, "historialNumber") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Care.List(ctx, p.HistorialNumber).Snapshot(care.ResourceRecords)
			},
		},
		OpCreateCareRecord: {
			resource: care.ResourceCreation,
			validate: func(p Params) error { return need(p.Record != nil, OpCreateCareRecord, "record") },
			run: func(ctx context.Context, p Params) resource.Snapshot {
				return a.Care.Create(ctx, *p.Record).Snapshot(care.ResourceCreation)
			},
		},
	}
}

// Operations lists the operation names in lexical order.
func (a *App) Operations() []string {
	out := make([]string, 0, len(a.ops))
	for name := range a.ops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OperationResource returns the resource an operation writes.
func (a *App) OperationResource(op string) (string, error) {
	o, ok := a.ops[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	return o.resource, nil
}

func (a *App) prepare(op string, p Params) (operation, error) {
	o, ok := a.ops[op]
	if !ok {
		return operation{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	if err := o.validate(p); err != nil {
		return operation{}, err
	}
	return o, nil
}

// Do runs op and returns the state it ended in. Remote failures are
// reported through the state, never as an error.
func (a *App) Do(ctx context.Context, op string, p Params) (resource.Snapshot, error) {
	o, err := a.prepare(op, p)
	if err != nil {
		return resource.Snapshot{}, err
	}
	return o.run(ctx, p), nil
}

// Trigger starts op in the background and returns once the run has
// published its own Loading, or once it has ended without doing so because
// the store is closed. Observe the resource for the outcome.
func (a *App) Trigger(op string, p Params) error {
	o, err := a.prepare(op, p)
	if err != nil {
		return err
	}

	began := make(chan struct{})
	var once sync.Once
	ctx := resource.WithStartHook(a.ctx, func() {
		once.Do(func() { close(began) })
	})

	done := make(chan struct{})
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	a.group.Go(func() error {
		defer close(done)
		snap := o.run(ctx, p)
		a.logger.Debug().Str("operation", op).Str("outcome", snap.KindName).Msg("operation finished")
		return nil
	})
	a.mu.RUnlock()

	select {
	case <-began:
	case <-done:
	}
	return nil
}
