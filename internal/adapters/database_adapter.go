package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/shard-legends/hatchery-service/internal/database"
	"github.com/shard-legends/hatchery-service/internal/storage"
)

// DatabaseAdapter адаптирует database.DB для storage.DatabaseInterface
type DatabaseAdapter struct {
	db *database.DB
}

func NewDatabaseAdapter(db *database.DB) storage.DatabaseInterface {
	return &DatabaseAdapter{db: db}
}

func (a *DatabaseAdapter) QueryRow(ctx context.Context, query string, args ...interface{}) storage.Row {
	return &RowAdapter{row: a.db.QueryRow(ctx, query, args...)}
}

func (a *DatabaseAdapter) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := a.db.Exec(ctx, query, args...)
	return err
}

func (a *DatabaseAdapter) Health(ctx context.Context) error {
	return a.db.Health(ctx)
}

// RowAdapter адаптирует pgx.Row для storage.Row
type RowAdapter struct {
	row pgx.Row
}

func (r *RowAdapter) Scan(dest ...interface{}) error {
	return r.row.Scan(dest...)
}
