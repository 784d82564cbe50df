package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 5 * time.Second

const workoutColumns = `
	id, external_id, owner_id, activity_type, start_time, end_time,
	duration, kcal, distance, terrain_up, terrain_down,
	heart_rate_avg, heart_rate_min, heart_rate_max,
	speed_avg, speed_min, speed_max, pace_min, pace_max,
	training_zones, heart_rate_samples, speed_samples, altitude_samples,
	distance_samples, kilometer_pace, created_at, updated_at`

const insertWorkoutSQL = `
	INSERT INTO workouts (
		id, external_id, owner_id, activity_type, start_time, end_time,
		duration, kcal, distance, terrain_up, terrain_down,
		heart_rate_avg, heart_rate_min, heart_rate_max,
		speed_avg, speed_min, speed_max, pace_min, pace_max,
		training_zones, heart_rate_samples, speed_samples, altitude_samples,
		distance_samples, kilometer_pace
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	ON CONFLICT (external_id, owner_id) DO NOTHING
	RETURNING` + workoutColumns

const insertRawWorkoutSQL = `
	INSERT INTO raw_workouts (workout_id, payload, object_key)
	VALUES ($1, $2, $3)
`

const updateWorkoutSQL = `
	UPDATE workouts SET
		activity_type = $3, start_time = $4, end_time = $5,
		duration = $6, kcal = $7, distance = $8, terrain_up = $9, terrain_down = $10,
		heart_rate_avg = $11, heart_rate_min = $12, heart_rate_max = $13,
		speed_avg = $14, speed_min = $15, speed_max = $16, pace_min = $17, pace_max = $18,
		training_zones = $19, heart_rate_samples = $20, speed_samples = $21,
		altitude_samples = $22, distance_samples = $23, kilometer_pace = $24,
		updated_at = now()
	WHERE external_id = $1 AND owner_id = $2
	RETURNING` + workoutColumns

// PostgresWorkoutsStorage implements storage.WorkoutsStorage for Postgres.
type PostgresWorkoutsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresWorkoutsStorage(pool *pgxpool.Pool) *PostgresWorkoutsStorage {
	return &PostgresWorkoutsStorage{pool: pool}
}

func (s *PostgresWorkoutsStorage) CreateWorkout(ctx context.Context, rec *storage.WorkoutRecord, raw *storage.RawWorkout) (*storage.WorkoutRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	stored, err := scanWorkout(tx.QueryRow(ctx, insertWorkoutSQL,
		id, rec.ExternalID, rec.OwnerID, rec.ActivityType, rec.StartTime, rec.EndTime,
		rec.Duration, rec.Kcal, rec.Distance, rec.TerrainUp, rec.TerrainDown,
		rec.HeartRateAvg, rec.HeartRateMin, rec.HeartRateMax,
		rec.SpeedAvg, rec.SpeedMin, rec.SpeedMax, rec.PaceMin, rec.PaceMax,
		rec.TrainingZones, rec.HeartRateSamples, rec.SpeedSamples, rec.AltitudeSamples,
		rec.DistanceSamples, rec.KilometerPace,
	))
	if errors.Is(err, storage.ErrNotFound) {
		// conflict on (external_id, owner_id)
		existing, err := getWorkoutByExternalID(ctx, tx, rec.OwnerID, rec.ExternalID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert workout: %w", err)
	}

	if raw != nil {
		if _, err := tx.Exec(ctx, insertRawWorkoutSQL, stored.ID, raw.Payload, raw.ObjectKey); err != nil {
			return nil, false, fmt.Errorf("insert raw workout: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

func (s *PostgresWorkoutsStorage) GetWorkout(ctx context.Context, id uuid.UUID) (*storage.WorkoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + workoutColumns + ` FROM workouts WHERE id = $1`
	return scanWorkout(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresWorkoutsStorage) GetWorkoutByExternalID(ctx context.Context, ownerID, externalID string) (*storage.WorkoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return getWorkoutByExternalID(ctx, s.pool, ownerID, externalID)
}

func getWorkoutByExternalID(ctx context.Context, q querier, ownerID, externalID string) (*storage.WorkoutRecord, error) {
	query := `SELECT` + workoutColumns + ` FROM workouts WHERE owner_id = $1 AND external_id = $2`
	return scanWorkout(q.QueryRow(ctx, query, ownerID, externalID))
}

func (s *PostgresWorkoutsStorage) UpdateWorkoutDerived(ctx context.Context, rec *storage.WorkoutRecord) (*storage.WorkoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return scanWorkout(s.pool.QueryRow(ctx, updateWorkoutSQL,
		rec.ExternalID, rec.OwnerID,
		rec.ActivityType, rec.StartTime, rec.EndTime,
		rec.Duration, rec.Kcal, rec.Distance, rec.TerrainUp, rec.TerrainDown,
		rec.HeartRateAvg, rec.HeartRateMin, rec.HeartRateMax,
		rec.SpeedAvg, rec.SpeedMin, rec.SpeedMax, rec.PaceMin, rec.PaceMax,
		rec.TrainingZones, rec.HeartRateSamples, rec.SpeedSamples,
		rec.AltitudeSamples, rec.DistanceSamples, rec.KilometerPace,
	))
}

func (s *PostgresWorkoutsStorage) ListWorkouts(ctx context.Context, filter storage.WorkoutFilter) ([]storage.WorkoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + workoutColumns + `
		FROM workouts
		WHERE owner_id = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time <= $3)
		ORDER BY start_time DESC`

	rows, err := s.pool.Query(ctx, query, filter.OwnerID, nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := []storage.WorkoutRecord{}
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, *rec)
	}

	return workouts, rows.Err()
}

func (s *PostgresWorkoutsStorage) GetRawWorkout(ctx context.Context, workoutID uuid.UUID) (*storage.RawWorkout, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT workout_id, payload, object_key, created_at
		FROM raw_workouts
		WHERE workout_id = $1
	`

	var raw storage.RawWorkout
	err := s.pool.QueryRow(ctx, query, workoutID).Scan(&raw.WorkoutID, &raw.Payload, &raw.ObjectKey, &raw.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

func scanWorkout(row pgx.Row) (*storage.WorkoutRecord, error) {
	var rec storage.WorkoutRecord
	err := row.Scan(
		&rec.ID,
		&rec.ExternalID,
		&rec.OwnerID,
		&rec.ActivityType,
		&rec.StartTime,
		&rec.EndTime,
		&rec.Duration,
		&rec.Kcal,
		&rec.Distance,
		&rec.TerrainUp,
		&rec.TerrainDown,
		&rec.HeartRateAvg,
		&rec.HeartRateMin,
		&rec.HeartRateMax,
		&rec.SpeedAvg,
		&rec.SpeedMin,
		&rec.SpeedMax,
		&rec.PaceMin,
		&rec.PaceMax,
		&rec.TrainingZones,
		&rec.HeartRateSamples,
		&rec.SpeedSamples,
		&rec.AltitudeSamples,
		&rec.DistanceSamples,
		&rec.KilometerPace,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
