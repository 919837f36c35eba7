package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is customer feedback for a completed booking. One review per
// booking, enforced by a unique index.
type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookingID  primitive.ObjectID `bson:"booking_id" json:"booking_id"`
	VehicleID  primitive.ObjectID `bson:"vehicle_id" json:"vehicle_id"`
	ReviewerID primitive.ObjectID `bson:"reviewer_id" json:"reviewer_id"`
	Rating     int                `bson:"rating" json:"rating"` // 1..5
	Comment    string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// IsValidRating checks that a rating is within the 1..5 scale.
func IsValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
