package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// WorkoutRecord is a processed workout. (ExternalID, OwnerID) is unique.
// JSON columns hold the serialized derivations.
type WorkoutRecord struct {
	ID           uuid.UUID
	ExternalID   string // appleUUID
	OwnerID      string
	ActivityType int
	StartTime    time.Time
	EndTime      time.Time
	Duration     *float64
	Kcal         *float64
	Distance     *float64
	TerrainUp    float64
	TerrainDown  float64
	HeartRateAvg float64
	HeartRateMin *float64
	HeartRateMax *float64
	SpeedAvg     float64
	SpeedMin     *float64
	SpeedMax     *float64
	PaceMin      float64
	PaceMax      float64

	TrainingZones    []byte // JSON {"heartRate":..., "speed":...}
	HeartRateSamples []byte // JSON []Sample
	SpeedSamples     []byte
	AltitudeSamples  []byte
	DistanceSamples  []byte
	KilometerPace    []byte // JSON []Segment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RawWorkout is the payload a workout was created from. Payload is nil when
// the body was archived to the blob store under ObjectKey.
type RawWorkout struct {
	WorkoutID uuid.UUID
	Payload   []byte
	ObjectKey *string
	CreatedAt time.Time
}

// WorkoutFilter narrows ListWorkouts. Zero times are open bounds.
type WorkoutFilter struct {
	OwnerID string
	From    time.Time
	To      time.Time
}

// WorkoutsStorage persists workouts together with their raw payloads.
type WorkoutsStorage interface {
	// CreateWorkout inserts rec and raw unless a workout with the same
	// (ExternalID, OwnerID) exists, in which case the stored record is
	// returned and created is false.
	CreateWorkout(ctx context.Context, rec *WorkoutRecord, raw *RawWorkout) (stored *WorkoutRecord, created bool, err error)

	// GetWorkout returns ErrNotFound for unknown ids.
	GetWorkout(ctx context.Context, id uuid.UUID) (*WorkoutRecord, error)

	// GetWorkoutByExternalID returns ErrNotFound when the key is unknown.
	GetWorkoutByExternalID(ctx context.Context, ownerID, externalID string) (*WorkoutRecord, error)

	// UpdateWorkoutDerived overwrites every derived column of the workout
	// identified by (rec.ExternalID, rec.OwnerID). Identity, raw payload and
	// created_at are kept. Returns ErrNotFound when the key is unknown.
	UpdateWorkoutDerived(ctx context.Context, rec *WorkoutRecord) (*WorkoutRecord, error)

	// ListWorkouts returns workouts ordered by start time, newest first.
	ListWorkouts(ctx context.Context, filter WorkoutFilter) ([]WorkoutRecord, error)

	// GetRawWorkout returns ErrNotFound when the workout has no raw row.
	GetRawWorkout(ctx context.Context, workoutID uuid.UUID) (*RawWorkout, error)
}

// TrainingZone is a set of zone bounds registered for an owner, metric and
// activity type.
type TrainingZone struct {
	ID           uuid.UUID
	OwnerID      string
	Metric       string // HEARTRATE | SPEED
	ActivityType int
	Upper0       float64
	Upper1       float64
	Upper2       float64
	Upper3       float64
	CreatedAt    time.Time
}

// TrainingZonesStorage keeps the history of zone bounds.
type TrainingZonesStorage interface {
	CreateTrainingZone(ctx context.Context, zone *TrainingZone) error

	// ListTrainingZones returns the owner's zones, oldest first.
	ListTrainingZones(ctx context.Context, ownerID string) ([]TrainingZone, error)

	// TrainingZoneAsOf returns the newest zone created at or before at, or
	// the oldest zone when all are newer. (nil, nil) when none is registered.
	TrainingZoneAsOf(ctx context.Context, ownerID, metric string, activityType int, at time.Time) (*TrainingZone, error)
}

// Storage is the full persistence surface used by the service.
type Storage interface {
	WorkoutsStorage
	TrainingZonesStorage

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close закрывает соединение (для Postgres)
	Close() error
}

// PickTrainingZone applies the TrainingZoneAsOf rule to zones already
// filtered by owner, metric and activity type.
func PickTrainingZone(zones []TrainingZone, at time.Time) *TrainingZone {
	var latest, oldest *TrainingZone
	for i := range zones {
		z := &zones[i]
		if oldest == nil || z.CreatedAt.Before(oldest.CreatedAt) {
			oldest = z
		}
		if z.CreatedAt.After(at) {
			continue
		}
		if latest == nil || !z.CreatedAt.Before(latest.CreatedAt) {
			latest = z
		}
	}
	if latest != nil {
		return latest
	}
	return oldest
}
