package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driveaway/driveaway/internal/models"
)

// ReviewCollection defines the interface for review data operations.
type ReviewCollection interface {
	InsertReview(ctx context.Context, review models.Review) (*models.Review, error)
	FindReviewsByVehicle(ctx context.Context, vehicleID primitive.ObjectID) ([]models.Review, error)
}

// MongoReviewCollection implements ReviewCollection for MongoDB.
type MongoReviewCollection struct {
	Collection *mongo.Collection
}

// InsertReview inserts a review. The unique index on booking_id rejects a
// second review for the same booking; callers detect that with
// mongo.IsDuplicateKeyError.
func (c *MongoReviewCollection) InsertReview(ctx context.Context, review models.Review) (*models.Review, error) {
	review.ID = primitive.NewObjectID()
	review.CreatedAt = time.Now()

	if _, err := c.Collection.InsertOne(ctx, review); err != nil {
		return nil, err
	}
	return &review, nil
}

// FindReviewsByVehicle lists a vehicle's reviews newest first.
func (c *MongoReviewCollection) FindReviewsByVehicle(ctx context.Context, vehicleID primitive.ObjectID) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"vehicle_id": vehicleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reviews []models.Review
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}
