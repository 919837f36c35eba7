package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a rentable vehicle listed by a vendor.
//
// Available is true iff no booking currently holds the vehicle in an active
// rental (approved and not yet completed/cancelled/rejected). Only the
// booking lifecycle engine mutates it.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type         string             `bson:"type" json:"type"` // "bike" or "car"
	Brand        string             `bson:"brand" json:"brand"`
	Model        string             `bson:"model" json:"model"`
	Year         int                `bson:"year" json:"year"`
	FuelType     string             `bson:"fuel_type" json:"fuel_type"`       // "Petrol", "Diesel", "Electric", "Hybrid"
	Transmission string             `bson:"transmission" json:"transmission"` // "Manual" or "Automatic"
	NumberPlate  string             `bson:"number_plate" json:"number_plate"`
	RentPerDay   float64            `bson:"rent_per_day" json:"rent_per_day"`
	Images       []string           `bson:"images,omitempty" json:"images,omitempty"`
	VendorID     primitive.ObjectID `bson:"vendor_id" json:"vendor_id"`
	Available    bool               `bson:"available" json:"available"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidVehicleType checks if a vehicle type is valid
func IsValidVehicleType(t string) bool {
	return t == "bike" || t == "car"
}
