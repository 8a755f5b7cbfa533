package medication

import "errors"

var ErrInvalidPrescription = errors.New("medication: invalid prescription")

// Medication is an entry of the hospital drug catalog.
type Medication struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Dose  string `json:"dose"`
	Route string `json:"route"`
}

// Prescription links a catalog medication to a patient.
type Prescription struct {
	HistorialNumber int    `json:"historialNumber"`
	MedicationID    int    `json:"medicationId"`
	Frequency       string `json:"frequency"`
}

func (p *Prescription) Validate() error {
	if p.HistorialNumber <= 0 || p.MedicationID <= 0 || p.Frequency == "" {
		return ErrInvalidPrescription
	}
	return nil
}

// MedicationIDs returns the catalog IDs referenced by ps.
func MedicationIDs(ps []Prescription) []int {
	out := make([]int, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.MedicationID)
	}
	return out
}
