package room

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

func (r *httpRepo) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := r.client.Get(ctx, "getAllRooms", "/api/v1/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return rooms, nil
}

func (r *httpRepo) AssignPatient(ctx context.Context, number, historial int) (bool, error) {
	return r.client.Acknowledge(ctx, "assignRoom", http.MethodPut,
		fmt.Sprintf("/api/v1/rooms/%d/patient", number), Assignment{HistorialNumber: historial})
}

func (r *httpRepo) ReleaseRoom(ctx context.Context, number int) (bool, error) {
	return r.client.Acknowledge(ctx, "releaseRoom", http.MethodDelete,
		fmt.Sprintf("/api/v1/rooms/%d/patient", number), nil)
}
