// File: database/repository/availability/memory.go
package availabilityRepo

import (
	"context"
	"sync"

	"gymbuddy/models"
)

// memoryAvailabilityRepo keeps calendars in a map; used by tests and by
// single-node setups that run without Mongo.
type memoryAvailabilityRepo struct {
	mu   sync.RWMutex
	data map[string]models.WeeklyAvailability
}

// NewMemoryAvailabilityRepo constructs an in-memory AvailabilityRepository.
func NewMemoryAvailabilityRepo() AvailabilityRepository {
	return &memoryAvailabilityRepo{
		data: make(map[string]models.WeeklyAvailability),
	}
}

func (r *memoryAvailabilityRepo) Get(_ context.Context, userID string) (models.WeeklyAvailability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cal, ok := r.data[userID]
	if !ok {
		return models.NewWeeklyAvailability(), ErrNotFound
	}
	return cal.Clone(), nil
}

func (r *memoryAvailabilityRepo) Set(_ context.Context, userID string, cal models.WeeklyAvailability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[userID] = cal.Clone()
	return nil
}
