package auxiliary

import (
	"context"

	"github.com/ehr/auxcare/internal/platform/apiclient"
)

type httpRepo struct {
	client *apiclient.Client
}

func NewHTTPRepo(client *apiclient.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) Login(ctx context.Context, id int, password string) (*Session, error) {
	var resp LoginResponse
	if err := r.client.Post(ctx, "login", "/api/v1/auth/login", Credentials{ID: id, Password: password}, &resp); err != nil {
		return nil, err
	}
	s, err := NewSession(resp)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
