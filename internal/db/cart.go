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

// CartCollection defines the interface for cart data operations.
type CartCollection interface {
	FindCartByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error)
	ClearCart(ctx context.Context, userID primitive.ObjectID) error
}

// MongoCartCollection implements CartCollection for MongoDB.
type MongoCartCollection struct {
	Collection *mongo.Collection
}

// FindCartByUser returns the user's cart, or ErrNotFound when they have
// never added an item.
func (c *MongoCartCollection) FindCartByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := c.Collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem puts a product in the cart, incrementing the quantity when the
// product is already present.
func (c *MongoCartCollection) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	now := time.Now()

	// Try to bump an existing line first.
	var cart models.Cart
	err := c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID, "items.product_id": productID},
		bson.M{
			"$inc": bson.M{"items.$.quantity": quantity},
			"$set": bson.M{"updated_at": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cart)
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// No existing line; push one, creating the cart when needed.
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$push":        bson.M{"items": models.CartItem{ProductID: productID, Quantity: quantity}},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"user_id": userID},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveItem drops a product line from the cart.
func (c *MongoCartCollection) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"product_id": productID}},
			"$set":  bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart empties the user's cart after an order is placed.
func (c *MongoCartCollection) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updated_at": time.Now()}},
	)
	return err
}
