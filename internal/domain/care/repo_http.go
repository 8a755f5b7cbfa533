package care

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

func (r *httpRepo) ListRecords(ctx context.Context, historial int) ([]Record, error) {
	out := []Record{}
	if err := r.client.Get(ctx, "getCareRecords", fmt.Sprintf("/api/v1/patients/%d/care-records", historial), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) CreateRecord(ctx context.Context, rec *Record) (bool, error) {
	return r.client.Acknowledge(ctx, "createCareRecord", http.MethodPost,
		fmt.Sprintf("/api/v1/patients/%d/care-records", rec.HistorialNumber), rec)
}
