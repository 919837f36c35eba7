package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a priced snapshot of a product at order time.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
}

// ShippingAddress is the delivery destination for an order.
type ShippingAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
}

// IsValidPaymentMethod checks a product-order payment method.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case "PayPal", "Stripe", "CashOnDelivery":
		return true
	default:
		return false
	}
}

// Order is a placed product order with derived pricing.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"`
	ItemsPrice      float64            `bson:"items_price" json:"items_price"`
	TaxPrice        float64            `bson:"tax_price" json:"tax_price"`
	ShippingPrice   float64            `bson:"shipping_price" json:"shipping_price"`
	TotalPrice      float64            `bson:"total_price" json:"total_price"`
	IsPaid          bool               `bson:"is_paid" json:"is_paid"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	IsDelivered     bool               `bson:"is_delivered" json:"is_delivered"`
	DeliveredAt     *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
