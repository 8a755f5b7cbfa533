package room

import "context"

type Repository interface {
	ListRooms(ctx context.Context) ([]Room, error)
	AssignPatient(ctx context.Context, number, historial int) (bool, error)
	ReleaseRoom(ctx context.Context, number int) (bool, error)
}
