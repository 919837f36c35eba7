package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/driveaway/driveaway/internal/auth"
	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/models"
)

// AdminHandler handles account review and administration. All routes are
// admin only, enforced at the router.
type AdminHandler struct {
	authService *auth.Service
	users       db.UserCollection
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(authService *auth.Service, users db.UserCollection) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		users:       users,
	}
}

// ListPendingUsers lists accounts waiting for verification review.
func (h *AdminHandler) ListPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.FindUsers(r.Context(), bson.M{"verification_status": models.VerificationPending})
	if err != nil {
		http.Error(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// ListUsers lists all accounts, optionally filtered by role.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		if !models.IsValidRole(models.Role(role)) {
			http.Error(w, "Invalid role filter", http.StatusBadRequest)
			return
		}
		filter["role"] = role
	}

	users, err := h.users.FindUsers(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// ReviewUser approves or rejects a pending account.
func (h *AdminHandler) ReviewUser(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var reviewReq struct {
		Status models.VerificationStatus `json:"status"`
	}
	if err := json.Unmarshal(body, &reviewReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if reviewReq.Status != models.VerificationApproved && reviewReq.Status != models.VerificationRejected {
		http.Error(w, "Status must be approved or rejected", http.StatusBadRequest)
		return
	}

	user, err := h.users.SetVerificationStatus(r.Context(), r.PathValue("id"), reviewReq.Status)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// CreateUser creates a pre-approved account, bypassing the review queue.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var createReq models.RegisterRequest
	if err := json.Unmarshal(body, &createReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.authService.ValidateName(createReq.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateEmail(createReq.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(createReq.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(createReq.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	passwordHash, err := h.authService.HashPassword(createReq.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	created, err := h.users.InsertUser(r.Context(), models.User{
		Name:               createReq.Name,
		Email:              createReq.Email,
		PasswordHash:       passwordHash,
		Role:               createReq.Role,
		VerificationStatus: models.VerificationApproved,
		Phone:              createReq.Phone,
		Address:            createReq.Address,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			http.Error(w, "Email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// DeleteUser removes an account.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.users.DeleteUser(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
