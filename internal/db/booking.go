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

// BookingCollection defines the interface for booking data operations.
type BookingCollection interface {
	InsertBooking(ctx context.Context, booking models.Booking) (*models.Booking, error)
	FindBookingByID(ctx context.Context, id string) (*models.Booking, error)
	FindBookings(ctx context.Context, filter bson.M) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) (*models.Booking, error)
	SetPaymentOrder(ctx context.Context, id primitive.ObjectID, orderID string) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, paymentID, signature string) (*models.Booking, error)
	UpdateLocation(ctx context.Context, id string, location models.BookingLocation) (*models.BookingLocation, error)
}

// MongoBookingCollection implements BookingCollection for MongoDB.
type MongoBookingCollection struct {
	Collection *mongo.Collection
}

// InsertBooking inserts a booking record into the collection.
func (c *MongoBookingCollection) InsertBooking(ctx context.Context, booking models.Booking) (*models.Booking, error) {
	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()

	if _, err := c.Collection.InsertOne(ctx, booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindBookingByID finds a booking by its ID.
func (c *MongoBookingCollection) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var booking models.Booking
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindBookings queries booking records, newest first.
func (c *MongoBookingCollection) FindBookings(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBookingStatus sets the lifecycle status and returns the updated
// booking.
func (c *MongoBookingCollection) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) (*models.Booking, error) {
	var booking models.Booking
	err := c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// SetPaymentOrder stores the gateway order reference on the booking.
func (c *MongoBookingCollection) SetPaymentOrder(ctx context.Context, id primitive.ObjectID, orderID string) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"order_id": orderID, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid records a verified payment. The lifecycle status is deliberately
// untouched; payment confirmation never drives a status transition.
func (c *MongoBookingCollection) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentID, signature string) (*models.Booking, error) {
	var booking models.Booking
	err := c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentPaid,
			"payment_id":     paymentID,
			"signature":      signature,
			"updated_at":     time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateLocation upserts the booking's current location and returns it.
func (c *MongoBookingCollection) UpdateLocation(ctx context.Context, id string, location models.BookingLocation) (*models.BookingLocation, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var booking models.Booking
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"current_location": location, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return booking.CurrentLocation, nil
}
