package room

import "github.com/ehr/auxcare/internal/domain/patient"

// Room is a hospital room. Patient is nil when the room is free.
type Room struct {
	Number  int              `json:"number"`
	Floor   int              `json:"floor"`
	Patient *patient.Patient `json:"patient"`
}

func (r Room) Occupied() bool { return r.Patient != nil }

// AssignedPatients returns the historial numbers of the patients held by
// rooms, in room order. Free rooms contribute nothing.
func AssignedPatients(rooms []Room) []int {
	out := make([]int, 0, len(rooms))
	for _, r := range rooms {
		if r.Patient != nil {
			out = append(out, r.Patient.HistorialNumber)
		}
	}
	return out
}

// Assignment is the body of an assign call.
type Assignment struct {
	HistorialNumber int `json:"historialNumber"`
}
