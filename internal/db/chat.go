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

// ChatCollection defines the interface for chat and negotiation operations.
type ChatCollection interface {
	GetOrCreateChat(ctx context.Context, customerID, vendorID, vehicleID primitive.ObjectID) (*models.Chat, error)
	FindChatByID(ctx context.Context, id string) (*models.Chat, error)
	FindChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	SetNegotiation(ctx context.Context, chatID, vendorID primitive.ObjectID, price float64) (*models.Chat, error)
	ConsumeNegotiation(ctx context.Context, customerID, vendorID, vehicleID primitive.ObjectID) (*models.Negotiation, error)
	SetLastMessage(ctx context.Context, chatID primitive.ObjectID, last models.LastMessage) error
}

// MongoChatCollection implements ChatCollection for MongoDB.
type MongoChatCollection struct {
	Collection *mongo.Collection
}

// GetOrCreateChat returns the chat for the (customer, vendor, vehicle)
// triple, creating it on first contact.
func (c *MongoChatCollection) GetOrCreateChat(ctx context.Context, customerID, vendorID, vehicleID primitive.ObjectID) (*models.Chat, error) {
	filter := bson.M{
		"customer_id": customerID,
		"vendor_id":   vendorID,
		"vehicle_id":  vehicleID,
	}

	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"customer_id": customerID,
			"vendor_id":   vendorID,
			"vehicle_id":  vehicleID,
			"negotiation": models.Negotiation{Status: models.NegotiationNone},
			"created_at":  now,
			"updated_at":  now,
		},
	}

	var chat models.Chat
	err := c.Collection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&chat)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindChatByID finds a chat by its ID.
func (c *MongoChatCollection) FindChatByID(ctx context.Context, id string) (*models.Chat, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var chat models.Chat
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindChatsForUser lists chats where the user is either party, most
// recently active first.
func (c *MongoChatCollection) FindChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"customer_id": userID},
		bson.M{"vendor_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// SetNegotiation records a vendor price offer as the chat's active
// negotiation. The vendor filter doubles as the authorization check: a
// non-vendor caller matches nothing and gets ErrNotFound.
func (c *MongoChatCollection) SetNegotiation(ctx context.Context, chatID, vendorID primitive.ObjectID, price float64) (*models.Chat, error) {
	negotiation := models.Negotiation{
		Price:       price,
		Status:      models.NegotiationActive,
		LastUpdated: time.Now(),
	}

	var chat models.Chat
	err := c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": chatID, "vendor_id": vendorID},
		bson.M{"$set": bson.M{"negotiation": negotiation, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ConsumeNegotiation atomically transitions an active negotiation for the
// triple to completed and returns the consumed offer. The compare-and-swap
// on negotiation.status guarantees at most one booking ever consumes a
// given offer, even under concurrent creation attempts. Returns (nil, nil)
// when no active negotiation exists.
func (c *MongoChatCollection) ConsumeNegotiation(ctx context.Context, customerID, vendorID, vehicleID primitive.ObjectID) (*models.Negotiation, error) {
	filter := bson.M{
		"customer_id":        customerID,
		"vendor_id":          vendorID,
		"vehicle_id":         vehicleID,
		"negotiation.status": models.NegotiationActive,
	}
	update := bson.M{"$set": bson.M{
		"negotiation.status":       models.NegotiationCompleted,
		"negotiation.last_updated": time.Now(),
		"updated_at":               time.Now(),
	}}

	// Return the pre-image so the caller sees the offer it just consumed.
	var chat models.Chat
	err := c.Collection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat.Negotiation, nil
}

// SetLastMessage refreshes the denormalized conversation preview.
func (c *MongoChatCollection) SetLastMessage(ctx context.Context, chatID primitive.ObjectID, last models.LastMessage) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"last_message": last, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MessageCollection defines the interface for chat message operations.
type MessageCollection interface {
	InsertMessage(ctx context.Context, message models.Message) (*models.Message, error)
	FindMessagesByChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error)
}

// MongoMessageCollection implements MessageCollection for MongoDB.
type MongoMessageCollection struct {
	Collection *mongo.Collection
}

// InsertMessage inserts a chat message.
func (c *MongoMessageCollection) InsertMessage(ctx context.Context, message models.Message) (*models.Message, error) {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()

	if _, err := c.Collection.InsertOne(ctx, message); err != nil {
		return nil, err
	}
	return &message, nil
}

// FindMessagesByChat lists a chat's messages oldest first.
func (c *MongoMessageCollection) FindMessagesByChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
