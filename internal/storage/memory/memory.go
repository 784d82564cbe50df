package memory

import (
	"context"
)

// MemoryStorage - in-memory реализация storage.Storage
type MemoryStorage struct {
	*WorkoutsMemoryStorage
	*TrainingZonesMemoryStorage
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		WorkoutsMemoryStorage:      NewWorkoutsMemoryStorage(),
		TrainingZonesMemoryStorage: NewTrainingZonesMemoryStorage(),
	}
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}
