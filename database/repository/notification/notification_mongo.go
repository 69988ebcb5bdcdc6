// File: database/repository/notification/notification_mongo.go
package notificationRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gymbuddy/models"
)

func (r *mongoNotificationRepo) Create(ctx context.Context, rec *models.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("error creating notification record: %w", err)
	}
	return nil
}

func (r *mongoNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching notifications for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var records []models.NotificationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *mongoNotificationRepo) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("error marking notification %s read: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
