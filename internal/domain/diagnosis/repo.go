package diagnosis

import "context"

type Repository interface {
	GetDiagnosis(ctx context.Context, historial int) (*Diagnosis, error)
	SaveDiagnosis(ctx context.Context, d *Diagnosis) (bool, error)
}
