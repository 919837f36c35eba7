package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
)

// ReviewHandler handles vehicle review requests.
type ReviewHandler struct {
	reviews  db.ReviewCollection
	bookings db.BookingCollection
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews db.ReviewCollection, bookings db.BookingCollection) *ReviewHandler {
	return &ReviewHandler{
		reviews:  reviews,
		bookings: bookings,
	}
}

// CreateReview records feedback for a completed booking the actor made.
// One review per booking.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	reviewerID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var reviewReq struct {
		BookingID string `json:"booking_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := json.Unmarshal(body, &reviewReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !models.IsValidRating(reviewReq.Rating) {
		http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	booking, err := h.bookings.FindBookingByID(r.Context(), reviewReq.BookingID)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch booking", http.StatusInternalServerError)
		return
	}

	if booking.CustomerID != reviewerID {
		http.Error(w, "Only the booking's customer can review it", http.StatusForbidden)
		return
	}
	if booking.Status != models.BookingCompleted {
		http.Error(w, "Only completed bookings can be reviewed", http.StatusBadRequest)
		return
	}

	review, err := h.reviews.InsertReview(r.Context(), models.Review{
		BookingID:  booking.ID,
		VehicleID:  booking.VehicleID,
		ReviewerID: reviewerID,
		Rating:     reviewReq.Rating,
		Comment:    reviewReq.Comment,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			http.Error(w, "Booking already reviewed", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create review", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// ListVehicleReviews lists a vehicle's reviews, newest first.
func (h *ReviewHandler) ListVehicleReviews(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}

	reviews, err := h.reviews.FindReviewsByVehicle(r.Context(), vehicleID)
	if err != nil {
		http.Error(w, "Failed to fetch reviews", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}
