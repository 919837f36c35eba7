package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/driveaway/driveaway/internal/db"
)

var (
	// ErrBookingNotFound is returned when the referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrNotAuthorized is returned when the actor does not own the booking.
	ErrNotAuthorized = errors.New("not authorized to pay for this booking")
	// ErrInvalidAmount is returned when the booking's total cost is not a
	// positive finite number.
	ErrInvalidAmount = errors.New("booking total cost is not payable")
)

// Service reconciles bookings with the payment gateway. Payment state is a
// side channel keyed by booking identity: a verified payment marks the
// booking paid but never moves its lifecycle status.
type Service struct {
	bookings db.BookingCollection
	gateway  Gateway
	cfg      Config
}

// NewService creates a payment reconciliation service.
func NewService(bookings db.BookingCollection, gateway Gateway, cfg Config) *Service {
	return &Service{
		bookings: bookings,
		gateway:  gateway,
		cfg:      cfg,
	}
}

// CreateOrder opens a gateway payment order for a booking owned by the
// actor and stores the gateway order reference on the booking. The amount
// is the booking's total cost converted to minor currency units, rounded
// half away from zero.
func (s *Service) CreateOrder(ctx context.Context, bookingID, actorID string) (*Order, error) {
	booking, err := s.bookings.FindBookingByID(ctx, bookingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}

	if booking.CustomerID.Hex() != actorID {
		return nil, ErrNotAuthorized
	}

	total := booking.TotalCost
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, ErrInvalidAmount
	}
	amount := int64(math.Round(total * 100))

	// Receipt label derived from the booking identity; the nonce keeps
	// retried attempts distinguishable at the gateway.
	receipt := fmt.Sprintf("bk-%s-%s", booking.ID.Hex(), uuid.NewString()[:8])

	order, err := s.gateway.CreateOrder(ctx, amount, s.cfg.Currency, receipt)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.SetPaymentOrder(ctx, booking.ID, order.ID); err != nil {
		return nil, fmt.Errorf("store order reference: %w", err)
	}

	log.WithFields(log.Fields{
		"booking_id": booking.ID.Hex(),
		"order_id":   order.ID,
		"amount":     amount,
	}).Info("payment order created")

	return order, nil
}

// VerifyPayment recomputes the gateway signature for the (orderID,
// paymentID) pair and compares it with the supplied one. On a match the
// booking is marked paid and the gateway references are stored; on a
// mismatch nothing is mutated and ok is false.
func (s *Service) VerifyPayment(ctx context.Context, orderID, paymentID, signature, bookingID string) (bool, error) {
	if !VerifySignature(orderID, paymentID, signature, s.cfg.KeySecret) {
		log.WithFields(log.Fields{
			"booking_id": bookingID,
			"order_id":   orderID,
		}).Warn("payment signature mismatch")
		return false, nil
	}

	booking, err := s.bookings.FindBookingByID(ctx, bookingID)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrBookingNotFound
	}
	if err != nil {
		return false, fmt.Errorf("load booking: %w", err)
	}

	if _, err := s.bookings.MarkPaid(ctx, booking.ID, paymentID, signature); err != nil {
		return false, fmt.Errorf("mark booking paid: %w", err)
	}
	return true, nil
}
