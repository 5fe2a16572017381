package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client wraps a registered connection with a write lock. gorilla/websocket
// forbids concurrent writers, and both the hub and the connection's own read
// loop (ping replies) write to the same conn, so every write goes through
// Write.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *Client) Write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Hub tracks the open WebSocket connections per user and fans events out to
// them. Delivery is best effort: a connection that errors on write is closed
// and pruned, and nothing here is ever on the photo workflow's critical path.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[int64]map[*Client]bool)}
}

func (h *Hub) Register(userID int64, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := &Client{conn: conn}
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*Client]bool)
	}
	h.conns[userID][client] = true
	fmt.Printf("User %d connected. Total connections: %d\n", userID, len(h.conns[userID]))
	return client
}

func (h *Hub) Unregister(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(userID, client)
}

// drop assumes h.mu is held.
func (h *Hub) drop(userID int64, client *Client) {
	if set, ok := h.conns[userID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Broadcast sends an event to every open connection for the user.
func (h *Hub) Broadcast(userID int64, event map[string]interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		fmt.Printf("Error marshaling notification: %v\n", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.conns[userID] {
		if err := client.Write(payload); err != nil {
			fmt.Printf("Error sending message to user %d: %v\n", userID, err)
			client.Close()
			h.drop(userID, client)
		}
	}
}

// ConnectionCount reports the open connections for a user.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Notifier is the process-wide hub.
var Notifier = NewHub()

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func NotifyPhotoStatus(userID, photoID int64, status, message string) {
	Notifier.Broadcast(userID, map[string]interface{}{
		"type":      "photo_status_update",
		"photo_id":  photoID,
		"status":    status,
		"message":   message,
		"timestamp": timestamp(),
	})
}

func NotifyPhotoCompleted(userID, photoID int64, processedURL, thumbnailURL string) {
	Notifier.Broadcast(userID, map[string]interface{}{
		"type":          "photo_completed",
		"photo_id":      photoID,
		"processed_url": processedURL,
		"thumbnail_url": thumbnailURL,
		"timestamp":     timestamp(),
	})
}

func NotifyPhotoFailed(userID, photoID int64, errorMessage string) {
	Notifier.Broadcast(userID, map[string]interface{}{
		"type":      "photo_failed",
		"photo_id":  photoID,
		"error":     errorMessage,
		"timestamp": timestamp(),
	})
}

func NotifyCreditsUpdated(userID int64, newBalance int, transactionType string) {
	Notifier.Broadcast(userID, map[string]interface{}{
		"type":             "credits_updated",
		"new_balance":      newBalance,
		"transaction_type": transactionType,
		"timestamp":        timestamp(),
	})
}
