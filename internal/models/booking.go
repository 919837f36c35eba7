package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentStatus tracks whether a booking has a verified payment. It is an
// independent dimension from BookingStatus: a booking can be pending and
// paid at the same time.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// IsValidBookingStatus checks if a booking status is valid
func IsValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCompleted, BookingCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether a status admits no further transitions.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingRejected, BookingCompleted, BookingCancelled:
		return true
	default:
		return false
	}
}

// FreesVehicle reports whether entering this status releases the vehicle
// back to the available pool.
func (s BookingStatus) FreesVehicle() bool {
	return s.IsTerminal()
}

// BookingLocation is the last reported position of a rented vehicle.
type BookingLocation struct {
	Latitude    float64   `bson:"latitude" json:"latitude"`
	Longitude   float64   `bson:"longitude" json:"longitude"`
	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// Booking represents a rental agreement between a customer and a vendor for
// one vehicle over a date range. TotalCost is derived at creation time and
// never user supplied.
type Booking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID      primitive.ObjectID `bson:"customer_id" json:"customer_id"`
	VendorID        primitive.ObjectID `bson:"vendor_id" json:"vendor_id"`
	VehicleID       primitive.ObjectID `bson:"vehicle_id" json:"vehicle_id"`
	StartDate       time.Time          `bson:"start_date" json:"start_date"`
	EndDate         time.Time          `bson:"end_date" json:"end_date"`
	TotalCost       float64            `bson:"total_cost" json:"total_cost"`
	Status          BookingStatus      `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus      `bson:"payment_status" json:"payment_status"`
	OrderID         string             `bson:"order_id,omitempty" json:"order_id,omitempty"`
	PaymentID       string             `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	Signature       string             `bson:"signature,omitempty" json:"signature,omitempty"`
	CurrentLocation *BookingLocation   `bson:"current_location,omitempty" json:"current_location,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// HydratedBooking is a booking joined with summaries of its referenced
// entities for list/detail responses.
type HydratedBooking struct {
	Booking
	Vehicle  *Vehicle     `json:"vehicle,omitempty"`
	Customer *UserSummary `json:"customer,omitempty"`
	Vendor   *UserSummary `json:"vendor,omitempty"`
}
