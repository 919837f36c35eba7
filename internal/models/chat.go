package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NegotiationStatus represents the state of a vendor price offer.
type NegotiationStatus string

const (
	NegotiationNone      NegotiationStatus = "none"
	NegotiationActive    NegotiationStatus = "active"
	NegotiationCompleted NegotiationStatus = "completed"
)

// Negotiation is a vendor-proposed per-day price override scoped to the
// chat's (customer, vendor, vehicle) triple. An active negotiation is
// consumable by exactly one booking; after consumption the record is inert
// and the vendor must issue a new offer to renegotiate.
type Negotiation struct {
	Price       float64           `bson:"price" json:"price"`
	Status      NegotiationStatus `bson:"status" json:"status"`
	LastUpdated time.Time         `bson:"last_updated" json:"last_updated"`
}

// LastMessage is a denormalized snapshot of the newest message in a chat,
// kept for conversation listings.
type LastMessage struct {
	Content   string             `bson:"content" json:"content"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Chat is a conversation between one customer and one vendor about one
// vehicle. The triple is unique per chat.
type Chat struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID  primitive.ObjectID `bson:"customer_id" json:"customer_id"`
	VendorID    primitive.ObjectID `bson:"vendor_id" json:"vendor_id"`
	VehicleID   primitive.ObjectID `bson:"vehicle_id" json:"vehicle_id"`
	LastMessage *LastMessage       `bson:"last_message,omitempty" json:"last_message,omitempty"`
	Negotiation Negotiation        `bson:"negotiation" json:"negotiation"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Message is a single chat message. System messages carry generated content
// such as negotiation offers.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Content   string             `bson:"content" json:"content"`
	IsSystem  bool               `bson:"is_system,omitempty" json:"is_system,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
