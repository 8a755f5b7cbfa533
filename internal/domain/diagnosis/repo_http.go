package diagnosis

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

func (r *httpRepo) GetDiagnosis(ctx context.Context, historial int) (*Diagnosis, error) {
	var d Diagnosis
	if err := r.client.Get(ctx, "getDiagnosis", fmt.Sprintf("/api/v1/patients/%d/diagnosis", historial), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *httpRepo) SaveDiagnosis(ctx context.Context, d *Diagnosis) (bool, error) {
	return r.client.Acknowledge(ctx, "saveDiagnosis", http.MethodPut,
		fmt.Sprintf("/api/v1/patients/%d/diagnosis", d.HistorialNumber), d)
}
