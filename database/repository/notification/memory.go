// File: database/repository/notification/memory.go
package notificationRepo

import (
	"context"
	"sort"
	"sync"

	"gymbuddy/models"
)

type memoryNotificationRepo struct {
	mu      sync.RWMutex
	records map[string]models.NotificationRecord
}

// NewMemoryNotificationRepo constructs an in-memory NotificationRepository.
func NewMemoryNotificationRepo() NotificationRepository {
	return &memoryNotificationRepo{
		records: make(map[string]models.NotificationRecord),
	}
}

func (r *memoryNotificationRepo) Create(_ context.Context, rec *models.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

func (r *memoryNotificationRepo) ListForUser(_ context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.NotificationRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryNotificationRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Read = true
	r.records[id] = rec
	return nil
}
