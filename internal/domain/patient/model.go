package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPatient is returned when a patient misses a required field.
var ErrInvalidPatient = errors.New("patient: invalid")

// Patient is a hospitalized patient, keyed by its historial number.
type Patient struct {
	HistorialNumber int       `json:"historialNumber"`
	DNI             string    `json:"dni"`
	Name            string    `json:"name"`
	Surname         string    `json:"surname"`
	Address         string    `json:"address,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	BirthDate       time.Time `json:"birthDate"`
	AdmittedAt      time.Time `json:"admittedAt"`
	Allergies       []string  `json:"allergies,omitempty"`
}

// FullName returns "Name Surname".
func (p Patient) FullName() string {
	return strings.TrimSpace(p.Name + " " + p.Surname)
}

// Validate checks the fields the backend requires on create and update.
func (p *Patient) Validate() error {
	switch {
	case p.HistorialNumber <= 0:
		return fmt.Errorf("%w: historial number must be positive", ErrInvalidPatient)
	case strings.TrimSpace(p.DNI) == "":
		return fmt.Errorf("%w: dni is required", ErrInvalidPatient)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPatient)
	case strings.TrimSpace(p.Surname) == "":
		return fmt.Errorf("%w: surname is required", ErrInvalidPatient)
	case !p.BirthDate.IsZero() && p.BirthDate.After(time.Now()):
		return fmt.Errorf("%w: birth date is in the future", ErrInvalidPatient)
	}
	return nil
}
