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

// OrderCollection defines the interface for product order operations.
type OrderCollection interface {
	InsertOrder(ctx context.Context, order models.Order) (*models.Order, error)
	FindOrderByID(ctx context.Context, id string) (*models.Order, error)
	FindOrders(ctx context.Context, filter bson.M) ([]models.Order, error)
	MarkDelivered(ctx context.Context, id string) (*models.Order, error)
}

// MongoOrderCollection implements OrderCollection for MongoDB.
type MongoOrderCollection struct {
	Collection *mongo.Collection
}

// InsertOrder inserts an order record.
func (c *MongoOrderCollection) InsertOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	if _, err := c.Collection.InsertOne(ctx, order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByID finds an order by its ID.
func (c *MongoOrderCollection) FindOrderByID(ctx context.Context, id string) (*models.Order, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var order models.Order
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrders queries order records, newest first.
func (c *MongoOrderCollection) FindOrders(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkDelivered flags an order as delivered.
func (c *MongoOrderCollection) MarkDelivered(ctx context.Context, id string) (*models.Order, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	var order models.Order
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"is_delivered": true, "delivered_at": now, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
