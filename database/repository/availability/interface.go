// File: database/repository/availability/interface.go
package availabilityRepo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"gymbuddy/database"
	"gymbuddy/models"
)

// ErrNotFound is returned when a user has no stored calendar.
var ErrNotFound = errors.New("availability not found")

// AvailabilityRepository persists each user's declared weekly availability.
type AvailabilityRepository interface {
	Get(ctx context.Context, userID string) (models.WeeklyAvailability, error)
	Set(ctx context.Context, userID string, cal models.WeeklyAvailability) error
}

type mongoAvailabilityRepo struct {
	coll *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a MongoDB-backed AvailabilityRepository.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.MongoClient.Database("gymbuddy")
	return &mongoAvailabilityRepo{
		coll: db.Collection("availability"),
	}
}
