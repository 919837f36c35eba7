package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/models"
)

// ProductHandler handles accessory catalog requests. Reads are public;
// writes are admin only, enforced at the router.
type ProductHandler struct {
	products db.ProductCollection
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products db.ProductCollection) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts returns the catalog, optionally filtered by category and a
// free-text search over the name.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}

	if category := r.URL.Query().Get("category"); category != "" {
		filter["category"] = category
	}
	if search := r.URL.Query().Get("search"); search != "" {
		filter["name"] = bson.M{"$regex": search, "$options": "i"}
	}

	products, err := h.products.FindProducts(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to fetch products", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one catalog item.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.FindProductByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch product", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// CreateProduct adds a catalog item.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var product models.Product
	if err := json.Unmarshal(body, &product); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if product.Name == "" || product.Category == "" {
		http.Error(w, "Name and category are required", http.StatusBadRequest)
		return
	}
	if product.Price <= 0 {
		http.Error(w, "Price must be positive", http.StatusBadRequest)
		return
	}
	if product.Stock < 0 {
		http.Error(w, "Stock cannot be negative", http.StatusBadRequest)
		return
	}

	created, err := h.products.InsertProduct(r.Context(), product)
	if err != nil {
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct applies a partial update to a catalog item.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var updateReq struct {
		Name     *string  `json:"name"`
		Price    *float64 `json:"price"`
		Category *string  `json:"category"`
		Image    *string  `json:"image"`
		Stock    *int     `json:"stock"`
	}
	if err := json.Unmarshal(body, &updateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	update := bson.M{}
	if updateReq.Name != nil {
		update["name"] = *updateReq.Name
	}
	if updateReq.Price != nil {
		if *updateReq.Price <= 0 {
			http.Error(w, "Price must be positive", http.StatusBadRequest)
			return
		}
		update["price"] = *updateReq.Price
	}
	if updateReq.Category != nil {
		update["category"] = *updateReq.Category
	}
	if updateReq.Image != nil {
		update["image"] = *updateReq.Image
	}
	if updateReq.Stock != nil {
		if *updateReq.Stock < 0 {
			http.Error(w, "Stock cannot be negative", http.StatusBadRequest)
			return
		}
		update["stock"] = *updateReq.Stock
	}

	if len(update) == 0 {
		http.Error(w, "No updatable fields supplied", http.StatusBadRequest)
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), r.PathValue("id"), update)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a catalog item.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.products.DeleteProduct(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
