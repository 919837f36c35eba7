package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
)

// CartHandler handles the authenticated user's accessory cart.
type CartHandler struct {
	carts    db.CartCollection
	products db.ProductCollection
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts db.CartCollection, products db.ProductCollection) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
	}
}

// GetCart returns the user's cart. A user who never added anything gets an
// empty cart rather than a 404.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
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

	cart, err := h.carts.FindCartByUser(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusOK, models.Cart{UserID: userID, Items: []models.CartItem{}})
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch cart", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddItem puts a product in the cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
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

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var addReq struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.Unmarshal(body, &addReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if addReq.Quantity <= 0 {
		http.Error(w, "Quantity must be positive", http.StatusBadRequest)
		return
	}

	product, err := h.products.FindProductByID(r.Context(), addReq.ProductID)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch product", http.StatusInternalServerError)
		return
	}

	if product.Stock < addReq.Quantity {
		http.Error(w, "Not enough stock", http.StatusConflict)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), userID, product.ID, addReq.Quantity)
	if err != nil {
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem drops a product line from the cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
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

	productID, err := primitive.ObjectIDFromHex(r.PathValue("productId"))
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), userID, productID)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Cart not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}
