package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/google/uuid"
)

// WorkoutsMemoryStorage implements storage.WorkoutsStorage in memory.
type WorkoutsMemoryStorage struct {
	mu       sync.RWMutex
	workouts map[uuid.UUID]storage.WorkoutRecord
	raw      map[uuid.UUID]storage.RawWorkout
	// index: ownerID+externalID -> workoutID
	byKey map[string]uuid.UUID
}

func NewWorkoutsMemoryStorage() *WorkoutsMemoryStorage {
	return &WorkoutsMemoryStorage{
		workouts: make(map[uuid.UUID]storage.WorkoutRecord),
		raw:      make(map[uuid.UUID]storage.RawWorkout),
		byKey:    make(map[string]uuid.UUID),
	}
}

func workoutKey(ownerID, externalID string) string {
	return ownerID + "\x00" + externalID
}

func (s *WorkoutsMemoryStorage) CreateWorkout(ctx context.Context, rec *storage.WorkoutRecord, raw *storage.RawWorkout) (*storage.WorkoutRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := workoutKey(rec.OwnerID, rec.ExternalID)
	if id, ok := s.byKey[key]; ok {
		existing := cloneRecord(s.workouts[id])
		return &existing, false, nil
	}

	now := time.Now().UTC()
	stored := cloneRecord(*rec)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.workouts[stored.ID] = stored
	s.byKey[key] = stored.ID
	if raw != nil {
		r := storage.RawWorkout{
			WorkoutID: stored.ID,
			Payload:   bytes.Clone(raw.Payload),
			ObjectKey: raw.ObjectKey,
			CreatedAt: now,
		}
		s.raw[stored.ID] = r
	}

	out := cloneRecord(stored)
	return &out, true, nil
}

func (s *WorkoutsMemoryStorage) GetWorkout(ctx context.Context, id uuid.UUID) (*storage.WorkoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.workouts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *WorkoutsMemoryStorage) GetWorkoutByExternalID(ctx context.Context, ownerID, externalID string) (*storage.WorkoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[workoutKey(ownerID, externalID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := cloneRecord(s.workouts[id])
	return &out, nil
}

func (s *WorkoutsMemoryStorage) UpdateWorkoutDerived(ctx context.Context, rec *storage.WorkoutRecord) (*storage.WorkoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[workoutKey(rec.OwnerID, rec.ExternalID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	existing := s.workouts[id]

	updated := cloneRecord(*rec)
	updated.ID = existing.ID
	updated.ExternalID = existing.ExternalID
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.workouts[id] = updated

	out := cloneRecord(updated)
	return &out, nil
}

func (s *WorkoutsMemoryStorage) ListWorkouts(ctx context.Context, filter storage.WorkoutFilter) ([]storage.WorkoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []storage.WorkoutRecord{}
	for _, rec := range s.workouts {
		if rec.OwnerID != filter.OwnerID {
			continue
		}
		if !filter.From.IsZero() && rec.StartTime.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.StartTime.After(filter.To) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (s *WorkoutsMemoryStorage) GetRawWorkout(ctx context.Context, workoutID uuid.UUID) (*storage.RawWorkout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.raw[workoutID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	raw.Payload = bytes.Clone(raw.Payload)
	return &raw, nil
}

// cloneRecord copies the JSON columns so callers cannot mutate stored state.
func cloneRecord(rec storage.WorkoutRecord) storage.WorkoutRecord {
	rec.TrainingZones = bytes.Clone(rec.TrainingZones)
	rec.HeartRateSamples = bytes.Clone(rec.HeartRateSamples)
	rec.SpeedSamples = bytes.Clone(rec.SpeedSamples)
	rec.AltitudeSamples = bytes.Clone(rec.AltitudeSamples)
	rec.DistanceSamples = bytes.Clone(rec.DistanceSamples)
	rec.KilometerPace = bytes.Clone(rec.KilometerPace)
	return rec
}
