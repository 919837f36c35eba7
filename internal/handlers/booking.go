package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/booking"
	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
	"github.com/driveaway/driveaway/internal/payment"
)

// BookingHandler handles booking lifecycle and payment requests.
type BookingHandler struct {
	engine   *booking.Engine
	payments *payment.Service
	bookings db.BookingCollection
	vehicles db.VehicleCollection
	users    db.UserCollection
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(engine *booking.Engine, payments *payment.Service, bookings db.BookingCollection, vehicles db.VehicleCollection, users db.UserCollection) *BookingHandler {
	return &BookingHandler{
		engine:   engine,
		payments: payments,
		bookings: bookings,
		vehicles: vehicles,
		users:    users,
	}
}

// bookingError maps lifecycle engine errors onto HTTP statuses.
func bookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrVehicleNotFound),
		errors.Is(err, booking.ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, booking.ErrVehicleUnavailable),
		errors.Is(err, booking.ErrVehicleAlreadyRented):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrInvalidDates),
		errors.Is(err, booking.ErrInvalidCost),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, booking.ErrMissingCoordinates):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		log.WithError(err).Error("booking operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// CreateBooking creates a pending booking for the authenticated customer.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	customerID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var createReq struct {
		VehicleID string    `json:"vehicle_id"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
	}
	if err := json.Unmarshal(body, &createReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if createReq.VehicleID == "" {
		http.Error(w, "vehicle_id is required", http.StatusBadRequest)
		return
	}

	created, err := h.engine.CreateBooking(r.Context(), customerID, booking.CreateRequest{
		VehicleID: createReq.VehicleID,
		StartDate: createReq.StartDate,
		EndDate:   createReq.EndDate,
	})
	if err != nil {
		bookingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListBookings lists bookings scoped by role: customers see their own,
// vendors see bookings against their vehicles, admins see everything.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	filter := bson.M{}
	switch claims.Role {
	case models.RoleCustomer:
		filter["customer_id"] = userID
	case models.RoleVendor:
		filter["vendor_id"] = userID
	case models.RoleAdmin:
		// unrestricted
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !models.IsValidBookingStatus(models.BookingStatus(status)) {
			http.Error(w, "Invalid status filter", http.StatusBadRequest)
			return
		}
		filter["status"] = status
	}

	bookings, err := h.bookings.FindBookings(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to fetch bookings", http.StatusInternalServerError)
		return
	}

	hydrated, err := h.hydrate(r, bookings)
	if err != nil {
		http.Error(w, "Failed to fetch bookings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, hydrated)
}

// GetBooking returns one booking, hydrated. Visible to the booking's
// customer, its vendor, and admins.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	b, err := h.bookings.FindBookingByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch booking", http.StatusInternalServerError)
		return
	}

	if claims.Role != models.RoleAdmin &&
		b.CustomerID.Hex() != claims.UserID &&
		b.VendorID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	hydrated, err := h.hydrate(r, []models.Booking{*b})
	if err != nil {
		http.Error(w, "Failed to fetch booking", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, hydrated[0])
}

// UpdateStatus applies a booking status transition.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var statusReq struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := json.Unmarshal(body, &statusReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	updated, err := h.engine.UpdateStatus(r.Context(), r.PathValue("id"), claims, statusReq.Status)
	if err != nil {
		bookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UpdateLocation records a tracked position against the booking. The HTTP
// path is the fallback ingest for devices without broker connectivity.
func (h *BookingHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var locReq struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(body, &locReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	location, err := h.engine.UpdateLocation(r.Context(), r.PathValue("id"), locReq.Latitude, locReq.Longitude)
	if err != nil {
		bookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, location)
}

// CreatePaymentOrder opens a gateway order for the booking's total cost.
func (h *BookingHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	order, err := h.payments.CreateOrder(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrBookingNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, payment.ErrNotAuthorized):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, payment.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, payment.ErrGateway):
			http.Error(w, "Payment gateway error", http.StatusBadGateway)
		default:
			log.WithError(err).Error("payment order creation failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// VerifyPayment checks the gateway callback signature and marks the booking
// paid when it matches.
func (h *BookingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var verifyReq struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(body, &verifyReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if verifyReq.OrderID == "" || verifyReq.PaymentID == "" || verifyReq.Signature == "" {
		http.Error(w, "order_id, payment_id and signature are required", http.StatusBadRequest)
		return
	}

	verified, err := h.payments.VerifyPayment(r.Context(), verifyReq.OrderID, verifyReq.PaymentID, verifyReq.Signature, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, payment.ErrBookingNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.WithError(err).Error("payment verification failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !verified {
		http.Error(w, "Invalid payment signature", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Payment verified successfully"})
}

// hydrate joins bookings with their vehicle and party summaries using one
// $in query per referenced collection.
func (h *BookingHandler) hydrate(r *http.Request, bookings []models.Booking) ([]models.HydratedBooking, error) {
	vehicleIDs := make([]primitive.ObjectID, 0, len(bookings))
	userIDs := make([]primitive.ObjectID, 0, len(bookings)*2)
	for _, b := range bookings {
		vehicleIDs = append(vehicleIDs, b.VehicleID)
		userIDs = append(userIDs, b.CustomerID, b.VendorID)
	}

	vehiclesByID := make(map[primitive.ObjectID]models.Vehicle)
	usersByID := make(map[primitive.ObjectID]models.UserSummary)

	if len(bookings) > 0 {
		vehicles, err := h.vehicles.FindVehicles(r.Context(), bson.M{"_id": bson.M{"$in": vehicleIDs}})
		if err != nil {
			return nil, err
		}
		for _, v := range vehicles {
			vehiclesByID[v.ID] = v
		}

		users, err := h.users.FindUsers(r.Context(), bson.M{"_id": bson.M{"$in": userIDs}})
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			usersByID[u.ID] = u.Summary()
		}
	}

	hydrated := make([]models.HydratedBooking, 0, len(bookings))
	for _, b := range bookings {
		hb := models.HydratedBooking{Booking: b}
		if v, ok := vehiclesByID[b.VehicleID]; ok {
			vehicle := v
			hb.Vehicle = &vehicle
		}
		if u, ok := usersByID[b.CustomerID]; ok {
			customer := u
			hb.Customer = &customer
		}
		if u, ok := usersByID[b.VendorID]; ok {
			vendor := u
			hb.Vendor = &vendor
		}
		hydrated = append(hydrated, hb)
	}
	return hydrated, nil
}
