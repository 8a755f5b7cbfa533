package patient

import (
	"context"

	"github.com/ehr/auxcare/pkg/pagination"
)

type Repository interface {
	GetPatient(ctx context.Context, historial int) (*Patient, error)
	ListPatients(ctx context.Context, params pagination.Params) (*pagination.Page[Patient], error)
	CreatePatient(ctx context.Context, p *Patient) (bool, error)
	UpdatePatient(ctx context.Context, p *Patient) (bool, error)
}
