// File: database/repository/availability/availability_mongo.go
package availabilityRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gymbuddy/models"
)

// availabilityDoc wraps a calendar with its owner for storage.
type availabilityDoc struct {
	UserID    string                    `bson:"userId"`
	Calendar  models.WeeklyAvailability `bson:"calendar"`
	UpdatedAt time.Time                 `bson:"updatedAt"`
}

func (r *mongoAvailabilityRepo) Get(ctx context.Context, userID string) (models.WeeklyAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc availabilityDoc
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewWeeklyAvailability(), ErrNotFound
	}
	if err != nil {
		return models.WeeklyAvailability{}, fmt.Errorf("error fetching availability for user %s: %w", userID, err)
	}
	if doc.Calendar.Days == nil {
		doc.Calendar = models.NewWeeklyAvailability()
	}
	return doc.Calendar, nil
}

func (r *mongoAvailabilityRepo) Set(ctx context.Context, userID string, cal models.WeeklyAvailability) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := availabilityDoc{
		UserID:    userID,
		Calendar:  cal,
		UpdatedAt: time.Now(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"userId": userID}, doc, opts); err != nil {
		return fmt.Errorf("error saving availability for user %s: %w", userID, err)
	}
	return nil
}
