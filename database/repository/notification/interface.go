// File: database/repository/notification/interface.go
package notificationRepo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"gymbuddy/database"
	"gymbuddy/models"
)

// ErrNotFound is returned when a notification record does not exist.
var ErrNotFound = errors.New("notification record not found")

// NotificationRepository persists emitted events so a presentation layer
// can list what each user was told.
type NotificationRepository interface {
	Create(ctx context.Context, rec *models.NotificationRecord) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)
	MarkRead(ctx context.Context, id string) error
}

type mongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo constructs a MongoDB-backed NotificationRepository.
func NewMongoNotificationRepo() NotificationRepository {
	db := database.MongoClient.Database("gymbuddy")
	return &mongoNotificationRepo{
		coll: db.Collection("notifications"),
	}
}
