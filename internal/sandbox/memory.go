package sandbox

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
)

type memRoom struct {
	number    int
	floor     int
	historial int // 0 when free
}

// MemoryStore keeps everything in maps behind one mutex.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[int]Account
	rooms         map[int]*memRoom
	patients      map[int]patient.Patient
	diagnoses     map[int]diagnosis.Diagnosis
	medications   map[int]medication.Medication
	prescriptions map[int][]medication.Prescription
	records       map[int][]care.Record
	nextRecordID  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[int]Account),
		rooms:         make(map[int]*memRoom),
		patients:      make(map[int]patient.Patient),
		diagnoses:     make(map[int]diagnosis.Diagnosis),
		medications:   make(map[int]medication.Medication),
		prescriptions: make(map[int][]medication.Prescription),
		records:       make(map[int][]care.Record),
	}
}

func (s *MemoryStore) PutAccount(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.Auxiliary.ID] = a
	return nil
}

func (s *MemoryStore) Account(_ context.Context, id int) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("auxiliary %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *MemoryStore) PutRoom(_ context.Context, r room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mr := &memRoom{number: r.Number, floor: r.Floor}
	if r.Patient != nil {
		if _, ok := s.patients[r.Patient.HistorialNumber]; !ok {
			return fmt.Errorf("patient %d: %w", r.Patient.HistorialNumber, ErrNotFound)
		}
		if other := s.roomOf(r.Patient.HistorialNumber); other != 0 && other != r.Number {
			return fmt.Errorf("patient %d already has a room: %w", r.Patient.HistorialNumber, ErrConflict)
		}
		mr.historial = r.Patient.HistorialNumber
	}
	s.rooms[r.Number] = mr
	return nil
}

// roomOf returns the room holding historial, or 0. Callers hold mu.
func (s *MemoryStore) roomOf(historial int) int {
	for n, r := range s.rooms {
		if r.historial == historial {
			return n
		}
	}
	return 0
}

func (s *MemoryStore) ListRooms(_ context.Context) ([]room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rr := room.Room{Number: r.number, Floor: r.floor}
		if r.historial != 0 {
			p := s.patients[r.historial]
			rr.Patient = &p
		}
		out = append(out, rr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) AssignRoom(_ context.Context, number, historial int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[number]
	if !ok {
		return fmt.Errorf("room %d: %w", number, ErrNotFound)
	}
	if _, ok := s.patients[historial]; !ok {
		return fmt.Errorf("patient %d: %w", historial, ErrNotFound)
	}
	if r.historial != 0 {
		return fmt.Errorf("room %d is occupied: %w", number, ErrConflict)
	}
	if other := s.roomOf(historial); other != 0 {
		return fmt.Errorf("patient %d is in room %d: %w", historial, other, ErrConflict)
	}
	r.historial = historial
	return nil
}

func (s *MemoryStore) ReleaseRoom(_ context.Context, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[number]
	if !ok {
		return fmt.Errorf("room %d: %w", number, ErrNotFound)
	}
	r.historial = 0
	return nil
}

func (s *MemoryStore) GetPatient(_ context.Context, historial int) (*patient.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[historial]
	if !ok {
		return nil, fmt.Errorf("patient %d: %w", historial, ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) ListPatients(_ context.Context, limit, offset int) ([]patient.Patient, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]patient.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].HistorialNumber < all[j].HistorialNumber })

	total := len(all)
	if offset >= total {
		return []patient.Patient{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) CreatePatient(_ context.Context, p *patient.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.HistorialNumber]; ok {
		return fmt.Errorf("patient %d: %w", p.HistorialNumber, ErrConflict)
	}
	s.patients[p.HistorialNumber] = *p
	return nil
}

func (s *MemoryStore) UpdatePatient(_ context.Context, p *patient.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.HistorialNumber]; !ok {
		return fmt.Errorf("patient %d: %w", p.HistorialNumber, ErrNotFound)
	}
	s.patients[p.HistorialNumber] = *p
	return nil
}

func (s *MemoryStore) GetDiagnosis(_ context.Context, historial int) (*diagnosis.Diagnosis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.diagnoses[historial]
	if !ok {
		return nil, fmt.Errorf("diagnosis of patient %d: %w", historial, ErrNotFound)
	}
	return &d, nil
}

func (s *MemoryStore) SaveDiagnosis(_ context.Context, d *diagnosis.Diagnosis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[d.HistorialNumber]; !ok {
		return fmt.Errorf("patient %d: %w", d.HistorialNumber, ErrNotFound)
	}
	s.diagnoses[d.HistorialNumber] = *d
	return nil
}

func (s *MemoryStore) PutMedication(_ context.Context, m medication.Medication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medications[m.ID] = m
	return nil
}

func (s *MemoryStore) ListMedications(_ context.Context) ([]medication.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]medication.Medication, 0, len(s.medications))
	for _, m := range s.medications {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListPrescriptions(_ context.Context, historial int) ([]medication.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[historial]; !ok {
		return nil, fmt.Errorf("patient %d: %w", historial, ErrNotFound)
	}
	out := make([]medication.Prescription, len(s.prescriptions[historial]))
	copy(out, s.prescriptions[historial])
	return out, nil
}

func (s *MemoryStore) AddPrescription(_ context.Context, p *medication.Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.HistorialNumber]; !ok {
		return fmt.Errorf("patient %d: %w", p.HistorialNumber, ErrNotFound)
	}
	if _, ok := s.medications[p.MedicationID]; !ok {
		return fmt.Errorf("medication %d: %w", p.MedicationID, ErrNotFound)
	}
	for _, existing := range s.prescriptions[p.HistorialNumber] {
		if existing.MedicationID == p.MedicationID {
			return fmt.Errorf("medication %d already prescribed: %w", p.MedicationID, ErrConflict)
		}
	}
	s.prescriptions[p.HistorialNumber] = append(s.prescriptions[p.HistorialNumber], *p)
	return nil
}

func (s *MemoryStore) ListCareRecords(_ context.Context, historial int) ([]care.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[historial]; !ok {
		return nil, fmt.Errorf("patient %d: %w", historial, ErrNotFound)
	}
	out := make([]care.Record, len(s.records[historial]))
	copy(out, s.records[historial])
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *MemoryStore) AddCareRecord(_ context.Context, r *care.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[r.HistorialNumber]; !ok {
		return fmt.Errorf("patient %d: %w", r.HistorialNumber, ErrNotFound)
	}
	s.nextRecordID++
	r.ID = s.nextRecordID
	s.records[r.HistorialNumber] = append(s.records[r.HistorialNumber], *r)
	return nil
}
