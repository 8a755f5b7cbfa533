package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/db"
)

// PGStore is the Postgres-backed Store. Its schema lives in migrations/.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.pool)
}

// mapPGError translates driver errors into store sentinels.
func mapPGError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *PGStore) PutAccount(ctx context.Context, a Account) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO auxiliary (id, name, surname, password_hash) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=$2, surname=$3, password_hash=$4`,
		a.Auxiliary.ID, a.Auxiliary.Name, a.Auxiliary.Surname, a.PasswordHash)
	return mapPGError(err, "put auxiliary")
}

func (s *PGStore) Account(ctx context.Context, id int) (Account, error) {
	var a Account
	err := s.conn(ctx).QueryRow(ctx, `SELECT id, name, surname, password_hash FROM auxiliary WHERE id = $1`, id).
		Scan(&a.Auxiliary.ID, &a.Auxiliary.Name, &a.Auxiliary.Surname, &a.PasswordHash)
	if err != nil {
		return Account{}, mapPGError(err, fmt.Sprintf("auxiliary %d", id))
	}
	return a, nil
}

func (s *PGStore) PutRoom(ctx context.Context, r room.Room) error {
	var historial *int
	if r.Patient != nil {
		historial = &r.Patient.HistorialNumber
	}
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO room (number, floor, historial_number) VALUES ($1,$2,$3)
		ON CONFLICT (number) DO UPDATE SET floor=$2, historial_number=$3`,
		r.Number, r.Floor, historial)
	return mapPGError(err, fmt.Sprintf("put room %d", r.Number))
}

const patientCols = `p.historial_number, p.dni, p.name, p.surname, p.address, p.phone, p.birth_date, p.admitted_at, p.allergies`

func scanPatient(row pgx.Row) (*patient.Patient, error) {
	var p patient.Patient
	var birth, admitted *time.Time
	if err := row.Scan(&p.HistorialNumber, &p.DNI, &p.Name, &p.Surname, &p.Address, &p.Phone, &birth, &admitted, &p.Allergies); err != nil {
		return nil, err
	}
	if birth != nil {
		p.BirthDate = *birth
	}
	if admitted != nil {
		p.AdmittedAt = *admitted
	}
	return &p, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *PGStore) ListRooms(ctx context.Context) ([]room.Room, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT r.number, r.floor, r.historial_number FROM room r ORDER BY r.number`)
	if err != nil {
		return nil, mapPGError(err, "list rooms")
	}
	defer rows.Close()

	out := []room.Room{}
	for rows.Next() {
		var r room.Room
		var historial *int
		if err := rows.Scan(&r.Number, &r.Floor, &historial); err != nil {
			return nil, mapPGError(err, "scan room")
		}
		if historial != nil {
			r.Patient = &patient.Patient{HistorialNumber: *historial}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPGError(err, "list rooms")
	}

	for i := range out {
		if out[i].Patient == nil {
			continue
		}
		p, err := s.GetPatient(ctx, out[i].Patient.HistorialNumber)
		if err != nil {
			return nil, err
		}
		out[i].Patient = p
	}
	return out, nil
}

func (s *PGStore) AssignRoom(ctx context.Context, number, historial int) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		var current *int
		err := s.conn(ctx).QueryRow(ctx, `SELECT historial_number FROM room WHERE number = $1 FOR UPDATE`, number).Scan(&current)
		if err != nil {
			return mapPGError(err, fmt.Sprintf("room %d", number))
		}
		if current != nil {
			return fmt.Errorf("room %d is occupied: %w", number, ErrConflict)
		}
		_, err = s.conn(ctx).Exec(ctx, `UPDATE room SET historial_number = $2 WHERE number = $1`, number, historial)
		return mapPGError(err, fmt.Sprintf("assign patient %d to room %d", historial, number))
	})
}

func (s *PGStore) ReleaseRoom(ctx context.Context, number int) error {
	tag, err := s.conn(ctx).Exec(ctx, `UPDATE room SET historial_number = NULL WHERE number = $1`, number)
	if err != nil {
		return mapPGError(err, fmt.Sprintf("release room %d", number))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %d: %w", number, ErrNotFound)
	}
	return nil
}

func (s *PGStore) GetPatient(ctx context.Context, historial int) (*patient.Patient, error) {
	p, err := scanPatient(s.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient p WHERE p.historial_number = $1`, historial))
	if err != nil {
		return nil, mapPGError(err, fmt.Sprintf("patient %d", historial))
	}
	return p, nil
}

func (s *PGStore) ListPatients(ctx context.Context, limit, offset int) ([]patient.Patient, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, mapPGError(err, "count patients")
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient p ORDER BY p.historial_number LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, mapPGError(err, "list patients")
	}
	defer rows.Close()

	out := []patient.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, mapPGError(err, "scan patient")
		}
		out = append(out, *p)
	}
	return out, total, mapPGError(rows.Err(), "list patients")
}

func (s *PGStore) CreatePatient(ctx context.Context, p *patient.Patient) error {
	allergies := p.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO patient (historial_number, dni, name, surname, address, phone, birth_date, admitted_at, allergies)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.HistorialNumber, p.DNI, p.Name, p.Surname, p.Address, p.Phone, nullTime(p.BirthDate), nullTime(p.AdmittedAt), allergies)
	return mapPGError(err, fmt.Sprintf("create patient %d", p.HistorialNumber))
}

func (s *PGStore) UpdatePatient(ctx context.Context, p *patient.Patient) error {
	allergies := p.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE patient SET dni=$2, name=$3, surname=$4, address=$5, phone=$6, birth_date=$7, admitted_at=$8, allergies=$9
		WHERE historial_number = $1`,
		p.HistorialNumber, p.DNI, p.Name, p.Surname, p.Address, p.Phone, nullTime(p.BirthDate), nullTime(p.AdmittedAt), allergies)
	if err != nil {
		return mapPGError(err, fmt.Sprintf("update patient %d", p.HistorialNumber))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %d: %w", p.HistorialNumber, ErrNotFound)
	}
	return nil
}

func (s *PGStore) GetDiagnosis(ctx context.Context, historial int) (*diagnosis.Diagnosis, error) {
	var d diagnosis.Diagnosis
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT historial_number, description, treatment, doctor, diagnosed_at
		FROM diagnosis WHERE historial_number = $1`, historial).
		Scan(&d.HistorialNumber, &d.Description, &d.Treatment, &d.Doctor, &d.DiagnosedAt)
	if err != nil {
		return nil, mapPGError(err, fmt.Sprintf("diagnosis of patient %d", historial))
	}
	return &d, nil
}

func (s *PGStore) SaveDiagnosis(ctx context.Context, d *diagnosis.Diagnosis) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO diagnosis (historial_number, description, treatment, doctor, diagnosed_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (historial_number) DO UPDATE SET description=$2, treatment=$3, doctor=$4, diagnosed_at=$5`,
		d.HistorialNumber, d.Description, d.Treatment, d.Doctor, d.DiagnosedAt)
	return mapPGError(err, fmt.Sprintf("save diagnosis of patient %d", d.HistorialNumber))
}

func (s *PGStore) PutMedication(ctx context.Context, m medication.Medication) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO medication (id, name, dose, route) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=$2, dose=$3, route=$4`,
		m.ID, m.Name, m.Dose, m.Route)
	return mapPGError(err, fmt.Sprintf("put medication %d", m.ID))
}

func (s *PGStore) ListMedications(ctx context.Context) ([]medication.Medication, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT id, name, dose, route FROM medication ORDER BY id`)
	if err != nil {
		return nil, mapPGError(err, "list medications")
	}
	defer rows.Close()
	out := []medication.Medication{}
	for rows.Next() {
		var m medication.Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.Dose, &m.Route); err != nil {
			return nil, mapPGError(err, "scan medication")
		}
		out = append(out, m)
	}
	return out, mapPGError(rows.Err(), "list medications")
}

func (s *PGStore) patientExists(ctx context.Context, historial int) error {
	var exists bool
	if err := s.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE historial_number = $1)`, historial).Scan(&exists); err != nil {
		return mapPGError(err, "check patient")
	}
	if !exists {
		return fmt.Errorf("patient %d: %w", historial, ErrNotFound)
	}
	return nil
}

func (s *PGStore) ListPrescriptions(ctx context.Context, historial int) ([]medication.Prescription, error) {
	if err := s.patientExists(ctx, historial); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT historial_number, medication_id, frequency FROM prescription
		WHERE historial_number = $1 ORDER BY created_at`, historial)
	if err != nil {
		return nil, mapPGError(err, "list prescriptions")
	}
	defer rows.Close()
	out := []medication.Prescription{}
	for rows.Next() {
		var p medication.Prescription
		if err := rows.Scan(&p.HistorialNumber, &p.MedicationID, &p.Frequency); err != nil {
			return nil, mapPGError(err, "scan prescription")
		}
		out = append(out, p)
	}
	return out, mapPGError(rows.Err(), "list prescriptions")
}

func (s *PGStore) AddPrescription(ctx context.Context, p *medication.Prescription) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (historial_number, medication_id, frequency) VALUES ($1,$2,$3)`,
		p.HistorialNumber, p.MedicationID, p.Frequency)
	return mapPGError(err, fmt.Sprintf("prescribe medication %d to patient %d", p.MedicationID, p.HistorialNumber))
}

const careCols = `id, historial_number, auxiliary_id, recorded_at, systolic_bp, diastolic_bp, pulse, temperature,
	hygiene, feeding, drainage, mobilization, notes`

func (s *PGStore) ListCareRecords(ctx context.Context, historial int) ([]care.Record, error) {
	if err := s.patientExists(ctx, historial); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+careCols+` FROM care_record WHERE historial_number = $1 ORDER BY recorded_at`, historial)
	if err != nil {
		return nil, mapPGError(err, "list care records")
	}
	defer rows.Close()
	out := []care.Record{}
	for rows.Next() {
		var r care.Record
		if err := rows.Scan(&r.ID, &r.HistorialNumber, &r.AuxiliaryID, &r.RecordedAt, &r.SystolicBP, &r.DiastolicBP,
			&r.Pulse, &r.Temperature, &r.Hygiene, &r.Feeding, &r.Drainage, &r.Mobilization, &r.Notes); err != nil {
			return nil, mapPGError(err, "scan care record")
		}
		out = append(out, r)
	}
	return out, mapPGError(rows.Err(), "list care records")
}

func (s *PGStore) AddCareRecord(ctx context.Context, r *care.Record) error {
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO care_record (historial_number, auxiliary_id, recorded_at, systolic_bp, diastolic_bp, pulse,
			temperature, hygiene, feeding, drainage, mobilization, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		r.HistorialNumber, r.AuxiliaryID, r.RecordedAt, r.SystolicBP, r.DiastolicBP, r.Pulse,
		r.Temperature, r.Hygiene, r.Feeding, r.Drainage, r.Mobilization, r.Notes).Scan(&r.ID)
	return mapPGError(err, fmt.Sprintf("add care record for patient %d", r.HistorialNumber))
}

var (
	_ Store = (*PGStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
