package diagnosis

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyDiagnosis = errors.New("diagnosis: description is required")

// Diagnosis is the current diagnosis of a patient. A patient has at most
// one.
type Diagnosis struct {
	HistorialNumber int       `json:"historialNumber"`
	Description     string    `json:"description"`
	Treatment       string    `json:"treatment,omitempty"`
	Doctor          string    `json:"doctor,omitempty"`
	DiagnosedAt     time.Time `json:"diagnosedAt"`
}

func (d *Diagnosis) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return ErrEmptyDiagnosis
	}
	return nil
}
