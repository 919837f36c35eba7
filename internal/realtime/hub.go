package realtime

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Event types broadcast to chat channel subscribers.
const (
	EventNewMessage        = "new_message"
	EventNegotiationUpdate = "negotiation_update"
)

// Event is a message pushed to everyone watching a chat channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans events out to websocket subscribers of chat-identified channels.
// Delivery is best effort: persisted state never depends on a broadcast
// reaching anyone, and slow or broken connections are dropped.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*websocket.Conn]bool
	upgrader    websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the request to a websocket and keeps the connection
// registered on the channel until the peer goes away. Blocks for the life
// of the connection.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, channel string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[channel][conn] = true
	h.mu.Unlock()

	defer h.remove(channel, conn)

	// Drain the connection; subscribers only listen.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Publish sends an event to every subscriber of the channel, dropping
// connections that fail to take the write.
func (h *Hub) Publish(channel string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subscribers[channel] {
		if err := conn.WriteJSON(event); err != nil {
			log.WithFields(log.Fields{
				"channel": channel,
				"event":   event.Type,
			}).WithError(err).Debug("dropping websocket subscriber")
			conn.Close()
			delete(h.subscribers[channel], conn)
		}
	}
}

// SubscriberCount reports how many connections watch a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[channel])
}

func (h *Hub) remove(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.subscribers[channel], conn)
	if len(h.subscribers[channel]) == 0 {
		delete(h.subscribers, channel)
	}
}
