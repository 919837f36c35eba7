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

// ProductCollection defines the interface for product catalog operations.
type ProductCollection interface {
	InsertProduct(ctx context.Context, product models.Product) (*models.Product, error)
	FindProductByID(ctx context.Context, id string) (*models.Product, error)
	FindProducts(ctx context.Context, filter bson.M) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id string, update bson.M) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
}

// MongoProductCollection implements ProductCollection for MongoDB.
type MongoProductCollection struct {
	Collection *mongo.Collection
}

// InsertProduct inserts a product into the catalog.
func (c *MongoProductCollection) InsertProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	if _, err := c.Collection.InsertOne(ctx, product); err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByID finds a product by its ID.
func (c *MongoProductCollection) FindProductByID(ctx context.Context, id string) (*models.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var product models.Product
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProducts queries the catalog.
func (c *MongoProductCollection) FindProducts(ctx context.Context, filter bson.M) ([]models.Product, error) {
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct applies a partial update and returns the new document.
func (c *MongoProductCollection) UpdateProduct(ctx context.Context, id string, update bson.M) (*models.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	update["updated_at"] = time.Now()

	var product models.Product
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct deletes a product by its ID.
func (c *MongoProductCollection) DeleteProduct(ctx context.Context, id string) error {
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

// DecrementStock takes quantity units off the shelf, conditionally on
// enough stock remaining. Returns ErrUnavailable when stock is short.
func (c *MongoProductCollection) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"stock": -quantity}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUnavailable
	}
	return nil
}
