package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trainingZoneColumns = `id, owner_id, metric, activity_type, upper0, upper1, upper2, upper3, created_at`

// PostgresTrainingZonesStorage implements storage.TrainingZonesStorage for Postgres.
type PostgresTrainingZonesStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresTrainingZonesStorage(pool *pgxpool.Pool) *PostgresTrainingZonesStorage {
	return &PostgresTrainingZonesStorage{pool: pool}
}

func (s *PostgresTrainingZonesStorage) CreateTrainingZone(ctx context.Context, zone *storage.TrainingZone) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	if zone.CreatedAt.IsZero() {
		zone.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO training_zones (` + trainingZoneColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		zone.ID, zone.OwnerID, zone.Metric, zone.ActivityType,
		zone.Upper0, zone.Upper1, zone.Upper2, zone.Upper3, zone.CreatedAt,
	)
	return err
}

func (s *PostgresTrainingZonesStorage) ListTrainingZones(ctx context.Context, ownerID string) ([]storage.TrainingZone, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + trainingZoneColumns + ` FROM training_zones WHERE owner_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := []storage.TrainingZone{}
	for rows.Next() {
		z, err := scanTrainingZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

// TrainingZoneAsOf picks the newest zone created at or before at, falling back
// to the oldest one.
func (s *PostgresTrainingZonesStorage) TrainingZoneAsOf(ctx context.Context, ownerID, metric string, activityType int, at time.Time) (*storage.TrainingZone, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT ` + trainingZoneColumns + `
		FROM training_zones
		WHERE owner_id = $1 AND metric = $2 AND activity_type = $3
		ORDER BY (created_at <= $4) DESC,
		         CASE WHEN created_at <= $4 THEN created_at END DESC,
		         created_at ASC
		LIMIT 1
	`
	z, err := scanTrainingZone(s.pool.QueryRow(ctx, query, ownerID, metric, activityType, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return z, err
}

func scanTrainingZone(row pgx.Row) (*storage.TrainingZone, error) {
	var z storage.TrainingZone
	err := row.Scan(&z.ID, &z.OwnerID, &z.Metric, &z.ActivityType, &z.Upper0, &z.Upper1, &z.Upper2, &z.Upper3, &z.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &z, nil
}
