package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/models"
)

// Engine owns booking status transitions and their coupled
// vehicle-availability effects.
//
// The availability model is deliberately a single flag per vehicle: at most
// one approved booking holds a vehicle at a time, and closing any booking
// releases the vehicle outright. Overlapping approved bookings are not
// reference-counted; that is a known limitation of the model, not something
// this engine tries to paper over.
type Engine struct {
	vehicles db.VehicleCollection
	bookings db.BookingCollection
	chats    db.ChatCollection
	txn      db.TxnRunner
}

// NewEngine creates a booking lifecycle engine.
func NewEngine(vehicles db.VehicleCollection, bookings db.BookingCollection, chats db.ChatCollection, txn db.TxnRunner) *Engine {
	return &Engine{
		vehicles: vehicles,
		bookings: bookings,
		chats:    chats,
		txn:      txn,
	}
}

// CreateRequest carries the customer-supplied booking parameters. The total
// cost is never taken from the request.
type CreateRequest struct {
	VehicleID string
	StartDate time.Time
	EndDate   time.Time
}

// DayCount measures the rental span in whole calendar days, rounding any
// partial day up: a one-hour booking already counts as one day. The end
// must be strictly after the start.
func DayCount(start, end time.Time) (int, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return 0, ErrInvalidDates
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days <= 0 {
		return 0, ErrInvalidDates
	}
	return days, nil
}

// CreateBooking creates a pending booking for the customer.
//
// The effective per-day rate is the active negotiated price for the
// (customer, vendor, vehicle) triple when one exists, consumed atomically
// so a concurrent second booking cannot reuse it; otherwise the vehicle's
// listed rent. Vehicle availability is not touched here; it only changes
// when the booking is approved.
func (e *Engine) CreateBooking(ctx context.Context, customerID primitive.ObjectID, req CreateRequest) (*models.Booking, error) {
	vehicle, err := e.vehicles.FindVehicleByID(ctx, req.VehicleID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load vehicle: %w", err)
	}

	if !vehicle.Available {
		return nil, ErrVehicleUnavailable
	}

	days, err := DayCount(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	rate := vehicle.RentPerDay
	negotiation, err := e.chats.ConsumeNegotiation(ctx, customerID, vehicle.VendorID, vehicle.ID)
	if err != nil {
		return nil, fmt.Errorf("consume negotiation: %w", err)
	}
	if negotiation != nil {
		rate = negotiation.Price
	}

	totalCost := float64(days) * rate
	if math.IsNaN(totalCost) || math.IsInf(totalCost, 0) {
		return nil, ErrInvalidCost
	}

	booking := models.Booking{
		CustomerID:    customerID,
		VendorID:      vehicle.VendorID,
		VehicleID:     vehicle.ID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		TotalCost:     totalCost,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentUnpaid,
	}

	created, err := e.bookings.InsertBooking(ctx, booking)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

// UpdateStatus drives a booking status transition on behalf of an actor,
// applying the vehicle availability side effect keyed by the new status:
// approving claims the vehicle (failing when it is already rented), closing
// statuses release it, anything else leaves it alone. The vehicle flip and
// the booking write commit as one transaction.
func (e *Engine) UpdateStatus(ctx context.Context, bookingID string, actor *models.Claims, newStatus models.BookingStatus) (*models.Booking, error) {
	if !models.IsValidBookingStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	current, err := e.bookings.FindBookingByID(ctx, bookingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}

	var owned bool
	switch actor.Role {
	case models.RoleCustomer:
		owned = current.CustomerID.Hex() == actor.UserID
	case models.RoleVendor:
		owned = current.VendorID.Hex() == actor.UserID
	case models.RoleAdmin:
		owned = true
	}

	if err := CanUpdateStatus(actor.Role, newStatus, owned); err != nil {
		return nil, err
	}

	var updated *models.Booking
	err = e.txn.WithTransaction(ctx, func(ctx context.Context) error {
		switch {
		case newStatus == models.BookingApproved:
			if err := e.vehicles.ClaimVehicle(ctx, current.VehicleID); err != nil {
				if errors.Is(err, db.ErrUnavailable) {
					return ErrVehicleAlreadyRented
				}
				if errors.Is(err, db.ErrNotFound) {
					return ErrVehicleNotFound
				}
				return fmt.Errorf("claim vehicle: %w", err)
			}
		case newStatus.FreesVehicle():
			err := e.vehicles.ReleaseVehicle(ctx, current.VehicleID)
			if err != nil && !errors.Is(err, db.ErrNotFound) {
				// A deleted listing has nothing left to free.
				return fmt.Errorf("release vehicle: %w", err)
			}
		}

		b, err := e.bookings.UpdateBookingStatus(ctx, current.ID, newStatus)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateLocation upserts the booking's last reported position. Both
// coordinates must be present. There is no ownership check beyond booking
// existence: updates arrive from tracking devices that authenticate at the
// transport, not as marketplace users.
func (e *Engine) UpdateLocation(ctx context.Context, bookingID string, latitude, longitude *float64) (*models.BookingLocation, error) {
	if latitude == nil || longitude == nil {
		return nil, ErrMissingCoordinates
	}

	location := models.BookingLocation{
		Latitude:    *latitude,
		Longitude:   *longitude,
		LastUpdated: time.Now(),
	}

	updated, err := e.bookings.UpdateLocation(ctx, bookingID, location)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}
	return updated, nil
}
