package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
	"github.com/driveaway/driveaway/internal/pricing"
)

// OrderHandler handles accessory order placement and fulfilment.
type OrderHandler struct {
	orders   db.OrderCollection
	products db.ProductCollection
	carts    db.CartCollection
	txn      db.TxnRunner
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders db.OrderCollection, products db.ProductCollection, carts db.CartCollection, txn db.TxnRunner) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		products: products,
		carts:    carts,
		txn:      txn,
	}
}

// CreateOrder places an order for the requested product lines. Prices are
// snapshotted from the catalog, never taken from the request, and the stock
// decrements commit atomically with the order insert: a line with short
// stock aborts the whole order.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
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

	var orderReq struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		ShippingAddress models.ShippingAddress `json:"shipping_address"`
		PaymentMethod   string                 `json:"payment_method"`
	}
	if err := json.Unmarshal(body, &orderReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if len(orderReq.Items) == 0 {
		http.Error(w, "Order must contain at least one item", http.StatusBadRequest)
		return
	}
	if !models.IsValidPaymentMethod(orderReq.PaymentMethod) {
		http.Error(w, "Invalid payment method", http.StatusBadRequest)
		return
	}
	if orderReq.ShippingAddress.Address == "" || orderReq.ShippingAddress.City == "" {
		http.Error(w, "Shipping address is required", http.StatusBadRequest)
		return
	}

	items := make([]models.OrderItem, 0, len(orderReq.Items))
	for _, line := range orderReq.Items {
		if line.Quantity <= 0 {
			http.Error(w, "Item quantity must be positive", http.StatusBadRequest)
			return
		}

		product, err := h.products.FindProductByID(r.Context(), line.ProductID)
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to fetch product", http.StatusInternalServerError)
			return
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     product.Price,
			Image:     product.Image,
		})
	}

	prices := pricing.CalculateOrderPrices(items)

	var created *models.Order
	err = h.txn.WithTransaction(r.Context(), func(ctx context.Context) error {
		for _, item := range items {
			if err := h.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		order, err := h.orders.InsertOrder(ctx, models.Order{
			UserID:          userID,
			Items:           items,
			ShippingAddress: orderReq.ShippingAddress,
			PaymentMethod:   orderReq.PaymentMethod,
			ItemsPrice:      prices.ItemsPrice,
			TaxPrice:        prices.TaxPrice,
			ShippingPrice:   prices.ShippingPrice,
			TotalPrice:      prices.TotalPrice,
		})
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if errors.Is(err, db.ErrUnavailable) {
		http.Error(w, "Not enough stock", http.StatusConflict)
		return
	}
	if err != nil {
		log.WithError(err).Error("order placement failed")
		http.Error(w, "Failed to place order", http.StatusInternalServerError)
		return
	}

	// Cart cleanup is best effort; the order is already committed.
	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		log.WithField("user_id", claims.UserID).WithError(err).Warn("cart clear failed after order")
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListOrders lists the actor's orders; admins see everything.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	filter := bson.M{}
	if claims.Role != models.RoleAdmin {
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}
		filter["user_id"] = userID
	}

	orders, err := h.orders.FindOrders(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to fetch orders", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order, visible to its owner and admins.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	order, err := h.orders.FindOrderByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch order", http.StatusInternalServerError)
		return
	}

	if claims.Role != models.RoleAdmin && order.UserID.Hex() != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// MarkDelivered flags an order as delivered. Admin only, enforced at the
// router.
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.MarkDelivered(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
