package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage - Postgres реализация storage.Storage
type PostgresStorage struct {
	pool *pgxpool.Pool
	*PostgresWorkoutsStorage
	*PostgresTrainingZonesStorage
}

// New открывает пул соединений и проверяет доступность базы
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{
		pool:                         pool,
		PostgresWorkoutsStorage:      NewPostgresWorkoutsStorage(pool),
		PostgresTrainingZonesStorage: NewPostgresTrainingZonesStorage(pool),
	}
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
