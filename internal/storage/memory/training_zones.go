package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/google/uuid"
)

// TrainingZonesMemoryStorage implements storage.TrainingZonesStorage in memory.
type TrainingZonesMemoryStorage struct {
	mu    sync.RWMutex
	zones map[string][]storage.TrainingZone // ownerID -> zones
}

func NewTrainingZonesMemoryStorage() *TrainingZonesMemoryStorage {
	return &TrainingZonesMemoryStorage{
		zones: make(map[string][]storage.TrainingZone),
	}
}

func (s *TrainingZonesMemoryStorage) CreateTrainingZone(ctx context.Context, zone *storage.TrainingZone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	if zone.CreatedAt.IsZero() {
		zone.CreatedAt = time.Now().UTC()
	}
	s.zones[zone.OwnerID] = append(s.zones[zone.OwnerID], *zone)
	return nil
}

func (s *TrainingZonesMemoryStorage) ListTrainingZones(ctx context.Context, ownerID string) ([]storage.TrainingZone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]storage.TrainingZone{}, s.zones[ownerID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *TrainingZonesMemoryStorage) TrainingZoneAsOf(ctx context.Context, ownerID, metric string, activityType int, at time.Time) (*storage.TrainingZone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []storage.TrainingZone
	for _, z := range s.zones[ownerID] {
		if z.Metric == metric && z.ActivityType == activityType {
			candidates = append(candidates, z)
		}
	}

	picked := storage.PickTrainingZone(candidates, at)
	if picked == nil {
		return nil, nil
	}
	out := *picked
	return &out, nil
}
