package auxiliary

import "context"

type Repository interface {
	Login(ctx context.Context, id int, password string) (*Session, error)
}
