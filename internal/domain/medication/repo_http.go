package medication

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ehr/auxcare/internal/platform/apiclient"
)

type httpRepo struct {
	client *apiclient.Client
}

func NewHTTPRepo(client *apiclient.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) ListMedications(ctx context.Context) ([]Medication, error) {
	out := []Medication{}
	if err := r.client.Get(ctx, "getAllMedications", "/api/v1/medications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) ListPrescriptions(ctx context.Context, historial int) ([]Prescription, error) {
	out := []Prescription{}
	if err := r.client.Get(ctx, "getPrescriptions", fmt.Sprintf("/api/v1/patients/%d/prescriptions", historial), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) Prescribe(ctx context.Context, p *Prescription) (bool, error) {
	return r.client.Acknowledge(ctx, "prescribe", http.MethodPost,
		fmt.Sprintf("/api/v1/patients/%d/prescriptions", p.HistorialNumber), p)
}
