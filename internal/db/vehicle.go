package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/driveaway/driveaway/internal/models"
)

// VehicleCollection defines the interface for vehicle data operations.
//
// The availability flag is only ever written through ClaimVehicle and
// ReleaseVehicle so that the booking lifecycle engine stays the single
// writer of that state.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehicles(ctx context.Context, filter bson.M) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, update bson.M) (*models.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
	ClaimVehicle(ctx context.Context, id primitive.ObjectID) error
	ReleaseVehicle(ctx context.Context, id primitive.ObjectID) error
}

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	vehicle.ID = primitive.NewObjectID()
	vehicle.Available = true
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()

	if _, err := c.Collection.InsertOne(ctx, vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var vehicle models.Vehicle
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehicles queries vehicle records, newest listings first.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, filter bson.M) ([]models.Vehicle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicle applies a partial update and returns the new document.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, id string, update bson.M) (*models.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	update["updated_at"] = time.Now()

	var vehicle models.Vehicle
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&vehicle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// DeleteVehicle deletes a vehicle by its ID.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimVehicle flips availability from true to false as a conditional
// update. A booking can only be approved through a successful claim, which
// keeps the single-active-rental invariant under concurrent approvals.
// Returns ErrUnavailable when the vehicle is already claimed, ErrNotFound
// when it does not exist.
func (c *MongoVehicleCollection) ClaimVehicle(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "available": true},
		bson.M{"$set": bson.M{"available": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing vehicle from a taken one.
		count, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrUnavailable
	}
	return nil
}

// ReleaseVehicle returns a vehicle to the available pool. Releasing an
// already-available vehicle is a no-op, not an error.
func (c *MongoVehicleCollection) ReleaseVehicle(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"available": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
