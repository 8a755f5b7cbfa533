package care

import "context"

type Repository interface {
	ListRecords(ctx context.Context, historial int) ([]Record, error)
	CreateRecord(ctx context.Context, r *Record) (bool, error)
}
