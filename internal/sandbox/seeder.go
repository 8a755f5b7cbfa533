package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ehr/auxcare/internal/domain/auxiliary"
	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/diagnosis"
	"github.com/ehr/auxcare/internal/domain/medication"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/auth"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// DefaultPassword is the password of every seeded auxiliary.
const DefaultPassword = "auxcare"

// DemoAuxiliaryID is always seeded.
const DemoAuxiliaryID = 42

type SeedConfig struct {
	Auxiliaries int   `json:"auxiliaries"`
	Patients    int   `json:"patients"`
	Rooms       int   `json:"rooms"`
	Floors      int   `json:"floors"`
	Occupied    int   `json:"occupied"`
	Seed        int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Auxiliaries: 5,
		Patients:    30,
		Rooms:       20,
		Floors:      4,
		Occupied:    12,
		Seed:        1,
	}
}

// SeedResult summarizes what Seed wrote.
type SeedResult struct {
	Auxiliaries int           `json:"auxiliaries"`
	Patients    int           `json:"patients"`
	Rooms       int           `json:"rooms"`
	Occupied    int           `json:"occupied"`
	Diagnoses   int           `json:"diagnoses"`
	Medications int           `json:"medications"`
	CareRecords int           `json:"careRecords"`
	Duration    time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

var (
	firstNames = []string{"Lucía", "María", "Carmen", "Ana", "Isabel", "Pilar", "Antonio", "José", "Manuel", "Francisco", "Javier", "David", "Juan", "Carlos", "Laura", "Marta"}
	lastNames  = []string{"García", "Fernández", "González", "Rodríguez", "López", "Martínez", "Sánchez", "Pérez", "Gómez", "Martín", "Jiménez", "Ruiz", "Hernández", "Díaz", "Moreno", "Álvarez"}
	streets    = []string{"Calle Mayor", "Avenida de la Constitución", "Calle Real", "Plaza de España", "Calle del Sol", "Paseo del Prado"}
	allergens  = []string{"penicilina", "ibuprofeno", "látex", "marisco", "frutos secos", "sulfamidas"}
	conditions = []struct{ description, treatment string }{
		{"Neumonía adquirida en la comunidad", "Antibioterapia intravenosa"},
		{"Fractura de cadera", "Reposo y analgesia"},
		{"Insuficiencia cardiaca descompensada", "Diuréticos y restricción hídrica"},
		{"EPOC agudizado", "Broncodilatadores y oxigenoterapia"},
		{"Infección del tracto urinario", "Antibioterapia oral"},
		{"Postoperatorio de apendicectomía", "Curas diarias y analgesia"},
	}
	doctors = []string{"Dra. Ortega", "Dr. Navarro", "Dra. Molina", "Dr. Castillo"}

	// Catalog is the fixed medication catalog.
	Catalog = []medication.Medication{
		{ID: 1, Name: "Paracetamol", Dose: "1 g", Route: "oral"},
		{ID: 2, Name: "Metamizol", Dose: "575 mg", Route: "oral"},
		{ID: 3, Name: "Omeprazol", Dose: "20 mg", Route: "oral"},
		{ID: 4, Name: "Enoxaparina", Dose: "40 mg", Route: "subcutánea"},
		{ID: 5, Name: "Furosemida", Dose: "40 mg", Route: "intravenosa"},
		{ID: 6, Name: "Amoxicilina/clavulánico", Dose: "875/125 mg", Route: "oral"},
		{ID: 7, Name: "Salbutamol", Dose: "100 mcg", Route: "inhalada"},
		{ID: 8, Name: "Insulina rápida", Dose: "según pauta", Route: "subcutánea"},
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic synthetic hospital data.
type DataGenerator struct {
	rng  *rand.Rand
	base time.Time
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		base: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
	}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomDate(minYear, maxYear int) time.Time {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := time.Month(1 + g.rng.Intn(12))
	d := 1 + g.rng.Intn(28)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (g *DataGenerator) dni() string {
	const letters = "TRWAGMYFPDXBNJZSQVHLCKE"
	n := g.rng.Intn(100000000)
	return fmt.Sprintf("%08d%c", n, letters[n%23])
}

func (g *DataGenerator) GenerateAuxiliary(id int) auxiliary.Auxiliary {
	return auxiliary.Auxiliary{ID: id, Name: g.pick(firstNames), Surname: g.pick(lastNames)}
}

func (g *DataGenerator) GeneratePatient(historial int) patient.Patient {
	p := patient.Patient{
		HistorialNumber: historial,
		DNI:             g.dni(),
		Name:            g.pick(firstNames),
		Surname:         g.pick(lastNames) + " " + g.pick(lastNames),
		Address:         fmt.Sprintf("%s %d", g.pick(streets), 1+g.rng.Intn(120)),
		Phone:           fmt.Sprintf("6%08d", g.rng.Intn(100000000)),
		BirthDate:       g.randomDate(1930, 2005),
		AdmittedAt:      g.base.Add(time.Duration(g.rng.Intn(72)) * time.Hour),
	}
	if g.rng.Intn(3) == 0 {
		p.Allergies = []string{g.pick(allergens)}
	}
	return p
}

func (g *DataGenerator) GenerateDiagnosis(historial int, at time.Time) diagnosis.Diagnosis {
	c := conditions[g.rng.Intn(len(conditions))]
	return diagnosis.Diagnosis{
		HistorialNumber: historial,
		Description:     c.description,
		Treatment:       c.treatment,
		Doctor:          g.pick(doctors),
		DiagnosedAt:     at.Add(2 * time.Hour),
	}
}

func (g *DataGenerator) GenerateCareRecord(historial, auxiliaryID int, at time.Time) care.Record {
	systolic := 100 + g.rng.Intn(50)
	return care.Record{
		HistorialNumber: historial,
		AuxiliaryID:     auxiliaryID,
		RecordedAt:      at,
		SystolicBP:      systolic,
		DiastolicBP:     systolic - 40 - g.rng.Intn(15),
		Pulse:           55 + g.rng.Intn(45),
		Temperature:     float64(360+g.rng.Intn(25)) / 10,
		Hygiene:         "aseo en cama",
		Feeding:         "dieta blanda",
		Mobilization:    "cambios posturales cada 3 h",
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder writes a generated dataset into a Store.
type Seeder struct {
	config    SeedConfig
	generator *DataGenerator
}

func NewSeeder(config SeedConfig) *Seeder {
	return &Seeder{config: config, generator: NewDataGenerator(config.Seed)}
}

// Seed writes auxiliaries (always including DemoAuxiliaryID), patients,
// rooms with the first Occupied patients assigned, diagnoses and care
// records for the hospitalized patients, and the medication catalog.
func (s *Seeder) Seed(ctx context.Context, store Store) (*SeedResult, error) {
	start := time.Now()
	cfg := s.config
	if cfg.Occupied > cfg.Rooms {
		cfg.Occupied = cfg.Rooms
	}
	if cfg.Occupied > cfg.Patients {
		cfg.Occupied = cfg.Patients
	}
	if cfg.Floors <= 0 {
		cfg.Floors = 1
	}
	result := &SeedResult{}

	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}
	for i := 0; i < cfg.Auxiliaries || i == 0; i++ {
		aux := s.generator.GenerateAuxiliary(DemoAuxiliaryID + i)
		if err := store.PutAccount(ctx, Account{Auxiliary: aux, PasswordHash: hash}); err != nil {
			return nil, fmt.Errorf("seed auxiliary %d: %w", aux.ID, err)
		}
		result.Auxiliaries++
	}

	for _, m := range Catalog {
		if err := store.PutMedication(ctx, m); err != nil {
			return nil, fmt.Errorf("seed medication %d: %w", m.ID, err)
		}
		result.Medications++
	}

	var patients []patient.Patient
	for i := 0; i < cfg.Patients; i++ {
		p := s.generator.GeneratePatient(1000 + i)
		if err := store.CreatePatient(ctx, &p); err != nil {
			return nil, fmt.Errorf("seed patient %d: %w", p.HistorialNumber, err)
		}
		patients = append(patients, p)
		result.Patients++
	}

	perFloor := (cfg.Rooms + cfg.Floors - 1) / cfg.Floors
	for i := 0; i < cfg.Rooms; i++ {
		floor := 1 + i/perFloor
		r := room.Room{Number: floor*100 + 1 + i%perFloor, Floor: floor}
		if i < cfg.Occupied {
			r.Patient = &patients[i]
		}
		if err := store.PutRoom(ctx, r); err != nil {
			return nil, fmt.Errorf("seed room %d: %w", r.Number, err)
		}
		result.Rooms++
		if r.Patient == nil {
			continue
		}
		result.Occupied++

		d := s.generator.GenerateDiagnosis(r.Patient.HistorialNumber, r.Patient.AdmittedAt)
		if err := store.SaveDiagnosis(ctx, &d); err != nil {
			return nil, fmt.Errorf("seed diagnosis %d: %w", d.HistorialNumber, err)
		}
		result.Diagnoses++

		rec := s.generator.GenerateCareRecord(r.Patient.HistorialNumber, DemoAuxiliaryID, r.Patient.AdmittedAt.Add(4*time.Hour))
		if err := store.AddCareRecord(ctx, &rec); err != nil {
			return nil, fmt.Errorf("seed care record %d: %w", rec.HistorialNumber, err)
		}
		result.CareRecords++
	}

	result.Duration = time.Since(start)
	return result, nil
}
