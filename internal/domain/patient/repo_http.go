package patient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ehr/auxcare/internal/platform/apiclient"
	"github.com/ehr/auxcare/pkg/pagination"
)

type httpRepo struct {
	client *apiclient.Client
}

func NewHTTPRepo(client *apiclient.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) GetPatient(ctx context.Context, historial int) (*Patient, error) {
	var p Patient
	if err := r.client.Get(ctx, "getPatient", fmt.Sprintf("/api/v1/patients/%d", historial), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *httpRepo) ListPatients(ctx context.Context, params pagination.Params) (*pagination.Page[Patient], error) {
	var page pagination.Page[Patient]
	if err := r.client.Get(ctx, "getAllPatients", "/api/v1/patients", params.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *httpRepo) CreatePatient(ctx context.Context, p *Patient) (bool, error) {
	return r.client.Acknowledge(ctx, "createPatient", http.MethodPost, "/api/v1/patients", p)
}

func (r *httpRepo) UpdatePatient(ctx context.Context, p *Patient) (bool, error) {
	return r.client.Acknowledge(ctx, "updatePatient", http.MethodPut, fmt.Sprintf("/api/v1/patients/%d", p.HistorialNumber), p)
}
