package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
)

// VehicleHandler handles vehicle listing requests.
type VehicleHandler struct {
	vehicles db.VehicleCollection
	users    db.UserCollection
}

// NewVehicleHandler creates a new vehicle handler.
func NewVehicleHandler(vehicles db.VehicleCollection, users db.UserCollection) *VehicleHandler {
	return &VehicleHandler{
		vehicles: vehicles,
		users:    users,
	}
}

// vehicleResponse is a vehicle joined with its vendor summary.
type vehicleResponse struct {
	models.Vehicle
	Vendor *models.UserSummary `json:"vendor,omitempty"`
}

// CreateVehicle lists a new vehicle under the authenticated vendor.
func (h *VehicleHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	vendorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var vehicle models.Vehicle
	if err := json.Unmarshal(body, &vehicle); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !models.IsValidVehicleType(vehicle.Type) {
		http.Error(w, "Vehicle type must be bike or car", http.StatusBadRequest)
		return
	}
	if vehicle.Brand == "" || vehicle.Model == "" || vehicle.NumberPlate == "" {
		http.Error(w, "Brand, model and number plate are required", http.StatusBadRequest)
		return
	}
	if vehicle.RentPerDay <= 0 {
		http.Error(w, "Rent per day must be positive", http.StatusBadRequest)
		return
	}

	vehicle.VendorID = vendorID

	created, err := h.vehicles.InsertVehicle(r.Context(), vehicle)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			http.Error(w, "Number plate already registered", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create vehicle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListVehicles returns the public catalog, optionally filtered by type, an
// availability flag, and a free-text search over brand/model/description.
func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}

	if t := r.URL.Query().Get("type"); t != "" {
		if !models.IsValidVehicleType(t) {
			http.Error(w, "Invalid vehicle type", http.StatusBadRequest)
			return
		}
		filter["type"] = t
	}

	if avail := r.URL.Query().Get("available"); avail != "" {
		filter["available"] = avail == "true"
	}

	if search := r.URL.Query().Get("search"); search != "" {
		regex := bson.M{"$regex": search, "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"brand": regex},
			bson.M{"model": regex},
			bson.M{"description": regex},
		}
	}

	vehicles, err := h.vehicles.FindVehicles(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to fetch vehicles", http.StatusInternalServerError)
		return
	}

	hydrated, err := h.hydrateVendors(r, vehicles)
	if err != nil {
		http.Error(w, "Failed to fetch vehicles", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, hydrated)
}

// ListMyVehicles returns the authenticated vendor's own listings.
func (h *VehicleHandler) ListMyVehicles(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	vendorID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	vehicles, err := h.vehicles.FindVehicles(r.Context(), bson.M{"vendor_id": vendorID})
	if err != nil {
		http.Error(w, "Failed to fetch vehicles", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, vehicles)
}

// GetVehicle returns one vehicle with its vendor summary.
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch vehicle", http.StatusInternalServerError)
		return
	}

	hydrated, err := h.hydrateVendors(r, []models.Vehicle{*vehicle})
	if err != nil {
		http.Error(w, "Failed to fetch vehicle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, hydrated[0])
}

// UpdateVehicle applies a partial update to a listing the actor owns.
// Availability is not updatable here; only the booking lifecycle moves it.
func (h *VehicleHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch vehicle", http.StatusInternalServerError)
		return
	}

	if claims.Role != models.RoleAdmin && vehicle.VendorID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var updateReq struct {
		Brand        *string   `json:"brand"`
		Model        *string   `json:"model"`
		Year         *int      `json:"year"`
		FuelType     *string   `json:"fuel_type"`
		Transmission *string   `json:"transmission"`
		RentPerDay   *float64  `json:"rent_per_day"`
		Images       *[]string `json:"images"`
		Description  *string   `json:"description"`
	}
	if err := json.Unmarshal(body, &updateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	update := bson.M{}
	if updateReq.Brand != nil {
		update["brand"] = *updateReq.Brand
	}
	if updateReq.Model != nil {
		update["model"] = *updateReq.Model
	}
	if updateReq.Year != nil {
		update["year"] = *updateReq.Year
	}
	if updateReq.FuelType != nil {
		update["fuel_type"] = *updateReq.FuelType
	}
	if updateReq.Transmission != nil {
		update["transmission"] = *updateReq.Transmission
	}
	if updateReq.RentPerDay != nil {
		if *updateReq.RentPerDay <= 0 {
			http.Error(w, "Rent per day must be positive", http.StatusBadRequest)
			return
		}
		update["rent_per_day"] = *updateReq.RentPerDay
	}
	if updateReq.Images != nil {
		update["images"] = *updateReq.Images
	}
	if updateReq.Description != nil {
		update["description"] = *updateReq.Description
	}

	if len(update) == 0 {
		http.Error(w, "No updatable fields supplied", http.StatusBadRequest)
		return
	}

	updated, err := h.vehicles.UpdateVehicle(r.Context(), r.PathValue("id"), update)
	if err != nil {
		http.Error(w, "Failed to update vehicle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteVehicle removes a listing the actor owns.
func (h *VehicleHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch vehicle", http.StatusInternalServerError)
		return
	}

	if claims.Role != models.RoleAdmin && vehicle.VendorID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.vehicles.DeleteVehicle(r.Context(), r.PathValue("id")); err != nil {
		http.Error(w, "Failed to delete vehicle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Vehicle deleted successfully"})
}

func (h *VehicleHandler) hydrateVendors(r *http.Request, vehicles []models.Vehicle) ([]vehicleResponse, error) {
	vendorIDs := make([]primitive.ObjectID, 0, len(vehicles))
	for _, v := range vehicles {
		vendorIDs = append(vendorIDs, v.VendorID)
	}

	vendorsByID := make(map[primitive.ObjectID]models.UserSummary)
	if len(vehicles) > 0 {
		vendors, err := h.users.FindUsers(r.Context(), bson.M{"_id": bson.M{"$in": vendorIDs}})
		if err != nil {
			return nil, err
		}
		for _, u := range vendors {
			vendorsByID[u.ID] = u.Summary()
		}
	}

	hydrated := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		resp := vehicleResponse{Vehicle: v}
		if vendor, ok := vendorsByID[v.VendorID]; ok {
			vs := vendor
			resp.Vendor = &vs
		}
		hydrated = append(hydrated, resp)
	}
	return hydrated, nil
}
