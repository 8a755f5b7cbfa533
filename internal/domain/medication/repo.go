package medication

import "context"

type Repository interface {
	ListMedications(ctx context.Context) ([]Medication, error)
	ListPrescriptions(ctx context.Context, historial int) ([]Prescription, error)
	Prescribe(ctx context.Context, p *Prescription) (bool, error)
}
