package care

import (
	"errors"
	"time"
)

var ErrInvalidRecord = errors.New("care: invalid record")

// Record is one round of care given by an auxiliary to a patient: vital
// signs plus the hygiene, feeding, drainage and mobilization notes.
type Record struct {
	ID              int       `json:"id"`
	HistorialNumber int       `json:"historialNumber"`
	AuxiliaryID     int       `json:"auxiliaryId"`
	RecordedAt      time.Time `json:"recordedAt"`
	SystolicBP      int       `json:"systolicBp"`
	DiastolicBP     int       `json:"diastolicBp"`
	Pulse           int       `json:"pulse"`
	Temperature     float64   `json:"temperature"`
	Hygiene         string    `json:"hygiene,omitempty"`
	Feeding         string    `json:"feeding,omitempty"`
	Drainage        string    `json:"drainage,omitempty"`
	Mobilization    string    `json:"mobilization,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// Validate rejects records without a patient or with vitals out of any
// plausible range.
func (r *Record) Validate() error {
	switch {
	case r.HistorialNumber <= 0:
		return errors.Join(ErrInvalidRecord, errors.New("historial number is required"))
	case r.SystolicBP < 0 || r.DiastolicBP < 0 || r.Pulse < 0:
		return errors.Join(ErrInvalidRecord, errors.New("vitals cannot be negative"))
	case r.DiastolicBP > r.SystolicBP:
		return errors.Join(ErrInvalidRecord, errors.New("diastolic pressure above systolic"))
	case r.Temperature != 0 && (r.Temperature < 30 || r.Temperature > 45):
		return errors.Join(ErrInvalidRecord, errors.New("temperature out of range"))
	}
	return nil
}

// Latest returns the most recent record, or false when rs is empty.
func Latest(rs []Record) (Record, bool) {
	if len(rs) == 0 {
		return Record{}, false
	}
	latest := rs[0]
	for _, r := range rs[1:] {
		if r.RecordedAt.After(latest.RecordedAt) {
			latest = r
		}
	}
	return latest, true
}
