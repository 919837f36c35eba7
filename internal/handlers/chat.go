package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
	"github.com/driveaway/driveaway/internal/realtime"
)

// ChatHandler handles customer-vendor conversations and price negotiation.
type ChatHandler struct {
	chats    db.ChatCollection
	messages db.MessageCollection
	vehicles db.VehicleCollection
	hub      *realtime.Hub
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chats db.ChatCollection, messages db.MessageCollection, vehicles db.VehicleCollection, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		messages: messages,
		vehicles: vehicles,
		hub:      hub,
	}
}

func (h *ChatHandler) participant(chat *models.Chat, userID string) bool {
	return chat.CustomerID.Hex() == userID || chat.VendorID.Hex() == userID
}

// OpenChat returns the conversation between the authenticated customer and
// a vehicle's vendor, creating it on first contact.
func (h *ChatHandler) OpenChat(w http.ResponseWriter, r *http.Request) {
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

	var openReq struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := json.Unmarshal(body, &openReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), openReq.VehicleID)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch vehicle", http.StatusInternalServerError)
		return
	}

	if vehicle.VendorID == customerID {
		http.Error(w, "Cannot open a chat about your own vehicle", http.StatusBadRequest)
		return
	}

	chat, err := h.chats.GetOrCreateChat(r.Context(), customerID, vehicle.VendorID, vehicle.ID)
	if err != nil {
		http.Error(w, "Failed to open chat", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

// ListMyChats lists the authenticated user's conversations.
func (h *ChatHandler) ListMyChats(w http.ResponseWriter, r *http.Request) {
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

	chats, err := h.chats.FindChatsForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch chats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chats)
}

// ListMessages lists a chat's messages oldest first. Participants only.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	chat, err := h.chats.FindChatByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch chat", http.StatusInternalServerError)
		return
	}

	if !h.participant(chat, claims.UserID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	messages, err := h.messages.FindMessagesByChat(r.Context(), chat.ID)
	if err != nil {
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// SendMessage appends a message to the chat and broadcasts it to live
// subscribers.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	senderID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	chat, err := h.chats.FindChatByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch chat", http.StatusInternalServerError)
		return
	}

	if !h.participant(chat, claims.UserID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var msgReq struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &msgReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if msgReq.Content == "" {
		http.Error(w, "Message content is required", http.StatusBadRequest)
		return
	}

	message, err := h.messages.InsertMessage(r.Context(), models.Message{
		ChatID:   chat.ID,
		SenderID: senderID,
		Content:  msgReq.Content,
	})
	if err != nil {
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	// Preview refresh is best effort; the message itself is already stored.
	_ = h.chats.SetLastMessage(r.Context(), chat.ID, models.LastMessage{
		Content:   message.Content,
		SenderID:  message.SenderID,
		Timestamp: message.CreatedAt,
	})

	h.hub.Publish(chat.ID.Hex(), realtime.Event{
		Type:    realtime.EventNewMessage,
		Payload: message,
	})

	writeJSON(w, http.StatusCreated, message)
}

// Negotiate records a vendor price offer on the chat. The offer replaces any
// previous negotiation, becomes consumable by the customer's next booking,
// and is announced in the conversation as a system message.
func (h *ChatHandler) Negotiate(w http.ResponseWriter, r *http.Request) {
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

	chatID, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var negotiateReq struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(body, &negotiateReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if negotiateReq.Price <= 0 {
		http.Error(w, "Price must be positive", http.StatusBadRequest)
		return
	}

	chat, err := h.chats.SetNegotiation(r.Context(), chatID, vendorID, negotiateReq.Price)
	if errors.Is(err, db.ErrNotFound) {
		// Either the chat does not exist or the caller is not its vendor.
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to record offer", http.StatusInternalServerError)
		return
	}

	offer := fmt.Sprintf("OFFER: I have offered a special price of ₹%v/day for this vehicle.", negotiateReq.Price)
	message, err := h.messages.InsertMessage(r.Context(), models.Message{
		ChatID:   chat.ID,
		SenderID: vendorID,
		Content:  offer,
		IsSystem: true,
	})
	if err != nil {
		http.Error(w, "Failed to record offer", http.StatusInternalServerError)
		return
	}

	_ = h.chats.SetLastMessage(r.Context(), chat.ID, models.LastMessage{
		Content:   message.Content,
		SenderID:  message.SenderID,
		Timestamp: message.CreatedAt,
	})

	h.hub.Publish(chat.ID.Hex(), realtime.Event{
		Type: realtime.EventNegotiationUpdate,
		Payload: map[string]interface{}{
			"chat_id":     chat.ID.Hex(),
			"negotiation": chat.Negotiation,
			"message":     message,
		},
	})

	writeJSON(w, http.StatusOK, chat)
}

// ServeWS attaches a live subscriber to the chat's event channel.
// Participants only; the connection stays open until the peer disconnects.
func (h *ChatHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	chat, err := h.chats.FindChatByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch chat", http.StatusInternalServerError)
		return
	}

	if !h.participant(chat, claims.UserID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	_ = h.hub.Subscribe(w, r, chat.ID.Hex())
}
